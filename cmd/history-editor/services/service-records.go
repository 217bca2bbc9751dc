package services

import (
	"context"
	"fmt"
	"time"

	"github.com/hass-tools/history-editor/cmd/history-editor/models"
	"github.com/hass-tools/history-editor/cmd/history-editor/repository"
	"github.com/hass-tools/history-editor/internal"
	"github.com/hass-tools/history-editor/pkg/datamodel"
)

// GetRecords returns the entity's records, newest first. All validation
// happens before the first storage round trip.
func (s *Service) GetRecords(ctx context.Context, request models.GetRecordsRequest) (records []datamodel.StateRecord, err error) {
	defer func() { observe("get_records", err) }()

	if err = checkEntityID(request.EntityID); err != nil {
		return nil, err
	}
	limit, err := checkLimit(request.Limit)
	if err != nil {
		return nil, err
	}
	start, err := parseOptionalTimestamp(request.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalTimestamp(request.EndTime)
	if err != nil {
		return nil, err
	}
	if err = checkRange(start, end); err != nil {
		return nil, err
	}

	err = s.gate.Run(ctx, func() error {
		handle, gateErr := s.repo.ResolveEntity(ctx, request.EntityID)
		if gateErr != nil {
			return gateErr
		}
		records, gateErr = s.repo.SelectRecords(ctx, handle, limit, start, end)
		return gateErr
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CreateRecord inserts a new record for an already known entity and returns
// the assigned record id. Omitted timestamps default to now; the affected
// statistics bucket is recalculated afterwards on a best-effort basis.
func (s *Service) CreateRecord(ctx context.Context, request models.CreateRecordRequest) (recordID int64, err error) {
	defer func() { observe("create_record", err) }()

	if err = checkEntityID(request.EntityID); err != nil {
		return 0, err
	}

	attributes, err := internal.DecodeAttributes(string(request.Attributes))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", models.ErrInvalidAttributes, err)
	}
	attributesText, err := internal.EncodeAttributes(attributes)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", models.ErrInvalidAttributes, err)
	}

	now := internal.UTCNow()
	lastChanged := now
	lastUpdated := now
	if parsed, parseErr := parseOptionalTimestamp(request.LastChanged); parseErr != nil {
		return 0, parseErr
	} else if parsed != nil {
		lastChanged = *parsed
	}
	if parsed, parseErr := parseOptionalTimestamp(request.LastUpdated); parseErr != nil {
		return 0, parseErr
	} else if parsed != nil {
		lastUpdated = *parsed
	}

	var entityID string
	err = s.gate.Run(ctx, func() error {
		handle, gateErr := s.repo.ResolveEntity(ctx, request.EntityID)
		if gateErr != nil {
			return gateErr
		}
		entityID = handle.EntityID
		recordID, gateErr = s.repo.InsertRecord(ctx, handle, *request.State, attributesText, lastChanged, lastUpdated)
		return gateErr
	})
	if err != nil {
		return 0, err
	}

	s.recalculateForRecordChange(ctx, entityID, lastUpdated)
	return recordID, nil
}

// UpdateRecord applies a partial update to one record. Fields left out of the
// request keep their stored value. A supplied entity_id must match the
// record's owner; records cannot be moved between entities. Timestamps touched
// by the update trigger a best-effort statistics recalculation.
func (s *Service) UpdateRecord(ctx context.Context, request models.UpdateRecordRequest) (err error) {
	defer func() { observe("update_record", err) }()

	update := repository.RecordUpdate{State: request.State}

	if request.Attributes != nil {
		attributes, decodeErr := internal.DecodeAttributes(string(request.Attributes))
		if decodeErr != nil {
			return fmt.Errorf("%w: %s", models.ErrInvalidAttributes, decodeErr)
		}
		attributesText, encodeErr := internal.EncodeAttributes(attributes)
		if encodeErr != nil {
			return fmt.Errorf("%w: %s", models.ErrInvalidAttributes, encodeErr)
		}
		update.Attributes = &attributesText
	}
	if request.LastChanged != nil {
		parsed, parseErr := parseOptionalTimestamp(*request.LastChanged)
		if parseErr != nil {
			return parseErr
		}
		update.LastChanged = parsed
	}
	if request.LastUpdated != nil {
		parsed, parseErr := parseOptionalTimestamp(*request.LastUpdated)
		if parseErr != nil {
			return parseErr
		}
		update.LastUpdated = parsed
	}
	if request.EntityID != nil {
		if err = checkEntityID(*request.EntityID); err != nil {
			return err
		}
	}

	var entityID string
	var touched []time.Time
	err = s.gate.Run(ctx, func() error {
		current, gateErr := s.repo.GetRecord(ctx, request.RecordID)
		if gateErr != nil {
			return gateErr
		}
		if request.EntityID != nil && *request.EntityID != current.EntityID {
			return fmt.Errorf("%w: a record cannot be moved to a different entity", models.ErrInvalidInput)
		}
		if gateErr = s.repo.UpdateRecord(ctx, request.RecordID, update); gateErr != nil {
			return gateErr
		}

		entityID = current.EntityID
		touched = append(touched, current.LastUpdated)
		if update.LastUpdated != nil {
			touched = append(touched, *update.LastUpdated)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recalculateForRecordChange(ctx, entityID, touched...)
	return nil
}

// DeleteRecord physically removes one record. References from newer records
// and dependent short-term statistics rows go with it.
func (s *Service) DeleteRecord(ctx context.Context, request models.DeleteRecordRequest) (err error) {
	defer func() { observe("delete_record", err) }()

	var entityID string
	var lastUpdated time.Time
	err = s.gate.Run(ctx, func() error {
		current, gateErr := s.repo.GetRecord(ctx, request.RecordID)
		if gateErr != nil {
			return gateErr
		}
		if gateErr = s.repo.DeleteRecord(ctx, request.RecordID); gateErr != nil {
			return gateErr
		}
		entityID = current.EntityID
		lastUpdated = current.LastUpdated
		return nil
	})
	if err != nil {
		return err
	}

	s.recalculateForRecordChange(ctx, entityID, lastUpdated)
	return nil
}
