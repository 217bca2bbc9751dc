package models

type GetStatisticsRequest struct {
	EntityID      string `form:"entity_id" binding:"required"`
	StatisticType string `form:"statistic_type,default=long_term"`
	Limit         int    `form:"limit,default=100"`
	StartTime     string `form:"start_time"`
	EndTime       string `form:"end_time"`
}

// UpdateStatisticRequest is a partial update of one aggregate row.
type UpdateStatisticRequest struct {
	ID            int64    `json:"id" binding:"required"`
	StatisticType string   `json:"statistic_type"`
	Mean          *float64 `json:"mean"`
	Min           *float64 `json:"min"`
	Max           *float64 `json:"max"`
	Sum           *float64 `json:"sum"`
	State         *float64 `json:"state"`
	Start         *string  `json:"start"`
}

type DeleteStatisticRequest struct {
	ID            int64  `json:"id" binding:"required"`
	StatisticType string `json:"statistic_type"`
}

type StatisticRecordDTO struct {
	ID            int64    `json:"id"`
	StatisticID   string   `json:"statistic_id"`
	StatisticType string   `json:"statistic_type"`
	Start         string   `json:"start"`
	Mean          *float64 `json:"mean"`
	Min           *float64 `json:"min"`
	Max           *float64 `json:"max"`
	Sum           *float64 `json:"sum"`
	State         *float64 `json:"state"`
	LastReset     *string  `json:"last_reset"`
	HasSourceData bool     `json:"has_source_data"`
}

type GetStatisticsResponse struct {
	Success bool                 `json:"success"`
	Records []StatisticRecordDTO `json:"records,omitempty"`
	Error   string               `json:"error,omitempty"`
}
