package models

import "github.com/goccy/go-json"

// GetRecordsRequest carries the query parameters of GET /records. Timestamps
// stay strings here; the service parses and validates them.
type GetRecordsRequest struct {
	EntityID  string `form:"entity_id" binding:"required"`
	Limit     int    `form:"limit,default=100"`
	StartTime string `form:"start_time"`
	EndTime   string `form:"end_time"`
}

type CreateRecordRequest struct {
	EntityID    string          `json:"entity_id" binding:"required"`
	State       *string         `json:"state" binding:"required"`
	Attributes  json.RawMessage `json:"attributes"`
	LastChanged string          `json:"last_changed"`
	LastUpdated string          `json:"last_updated"`
}

// UpdateRecordRequest is a partial update: only non-nil fields are applied.
type UpdateRecordRequest struct {
	RecordID    int64           `json:"record_id" binding:"required"`
	State       *string         `json:"state"`
	Attributes  json.RawMessage `json:"attributes"`
	EntityID    *string         `json:"entity_id"`
	LastChanged *string         `json:"last_changed"`
	LastUpdated *string         `json:"last_updated"`
}

type DeleteRecordRequest struct {
	RecordID int64 `json:"record_id" binding:"required"`
}

// StateRecordDTO is the wire form of a record: timestamps as RFC3339 text,
// attributes as the decoded JSON object.
type StateRecordDTO struct {
	RecordID    int64                  `json:"record_id"`
	EntityID    string                 `json:"entity_id"`
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes"`
	LastChanged string                 `json:"last_changed"`
	LastUpdated string                 `json:"last_updated"`
}

type GetRecordsResponse struct {
	Success bool             `json:"success"`
	Records []StateRecordDTO `json:"records,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type CreateRecordResponse struct {
	Success  bool   `json:"success"`
	RecordID int64  `json:"record_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// StatusResponse is the shared success/error envelope of the mutating
// endpoints. Callers must check the success flag; this boundary never raises.
type StatusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type GetEntitiesResponse struct {
	Success  bool     `json:"success"`
	Entities []string `json:"entities,omitempty"`
	Error    string   `json:"error,omitempty"`
}
