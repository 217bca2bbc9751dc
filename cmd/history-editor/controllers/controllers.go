package controllers

import (
	"time"

	"github.com/hass-tools/history-editor/cmd/history-editor/models"
	"github.com/hass-tools/history-editor/cmd/history-editor/services"
	"github.com/hass-tools/history-editor/pkg/datamodel"
)

var service *services.Service

// Init wires the handlers to the service. Must be called before the router
// starts serving.
func Init(s *services.Service) {
	service = s
}

func toRecordDTO(record datamodel.StateRecord) models.StateRecordDTO {
	return models.StateRecordDTO{
		RecordID:    record.RecordID,
		EntityID:    record.EntityID,
		State:       record.State,
		Attributes:  record.Attributes,
		LastChanged: record.LastChanged.Format(time.RFC3339Nano),
		LastUpdated: record.LastUpdated.Format(time.RFC3339Nano),
	}
}

func toStatisticDTO(record datamodel.StatisticRecord) models.StatisticRecordDTO {
	dto := models.StatisticRecordDTO{
		ID:            record.ID,
		StatisticID:   record.EntityID,
		StatisticType: string(record.Type),
		Start:         record.PeriodStart.Format(time.RFC3339Nano),
		Mean:          record.Mean,
		Min:           record.Min,
		Max:           record.Max,
		Sum:           record.Sum,
		State:         record.State,
		HasSourceData: record.HasSourceData,
	}
	if record.LastReset != nil {
		lastReset := record.LastReset.Format(time.RFC3339Nano)
		dto.LastReset = &lastReset
	}
	return dto
}
