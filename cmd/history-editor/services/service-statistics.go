package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hass-tools/history-editor/cmd/history-editor/models"
	"github.com/hass-tools/history-editor/cmd/history-editor/repository"
	"github.com/hass-tools/history-editor/pkg/datamodel"
	"go.uber.org/zap"
)

// recalculationTimeout bounds the best-effort statistics recalculation that
// follows a record change. It runs on a fresh context so a cancelled request
// cannot leave an already committed write without its recalculation.
const recalculationTimeout = 30 * time.Second

// parseStatisticType maps the wire value to a table choice. An omitted type
// means the long-term table.
func parseStatisticType(text string) (datamodel.StatisticType, error) {
	if text == "" {
		return datamodel.LongTermStatistic, nil
	}
	statType := datamodel.StatisticType(text)
	if !statType.Valid() {
		return "", fmt.Errorf("%w: statistic_type must be %q or %q",
			models.ErrInvalidInput, datamodel.LongTermStatistic, datamodel.ShortTermStatistic)
	}
	return statType, nil
}

// GetStatistics returns the entity's aggregate rows, newest bucket first.
// Every row carries a HasSourceData flag so callers know which rows can be
// edited directly.
func (s *Service) GetStatistics(ctx context.Context, request models.GetStatisticsRequest) (records []datamodel.StatisticRecord, err error) {
	defer func() { observe("get_statistics", err) }()

	statType, err := parseStatisticType(request.StatisticType)
	if err != nil {
		return nil, err
	}
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
		metadataID, gateErr := s.repo.ResolveStatisticMeta(ctx, request.EntityID)
		if gateErr != nil {
			return gateErr
		}
		records, gateErr = s.repo.SelectStatistics(ctx, metadataID, request.EntityID, statType, limit, start, end)
		if gateErr != nil {
			return gateErr
		}

		for i := range records {
			records[i].HasSourceData, gateErr = s.hasSourceData(ctx, metadataID, records[i])
			if gateErr != nil {
				return gateErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateStatistic applies a partial update to one aggregate row. Rows whose
// period still holds source data are refused; editing them would be undone by
// the next recalculation. Editing a short-term bucket cascades into the
// enclosing long-term hour.
func (s *Service) UpdateStatistic(ctx context.Context, request models.UpdateStatisticRequest) (err error) {
	defer func() { observe("update_statistic", err) }()

	statType, err := parseStatisticType(request.StatisticType)
	if err != nil {
		return err
	}
	update := repository.StatisticUpdate{
		Mean:  request.Mean,
		Min:   request.Min,
		Max:   request.Max,
		Sum:   request.Sum,
		State: request.State,
	}
	if request.Start != nil {
		parsed, parseErr := parseOptionalTimestamp(*request.Start)
		if parseErr != nil {
			return parseErr
		}
		update.PeriodStart = parsed
	}

	return s.gate.Run(ctx, func() error {
		record, metadataID, gateErr := s.repo.GetStatistic(ctx, statType, request.ID)
		if gateErr != nil {
			return gateErr
		}
		guarded, gateErr := s.hasSourceData(ctx, metadataID, record)
		if gateErr != nil {
			return gateErr
		}
		if guarded {
			return models.ErrStatisticSourceData
		}
		if gateErr = s.repo.UpdateStatistic(ctx, statType, request.ID, update); gateErr != nil {
			return gateErr
		}

		if statType == datamodel.ShortTermStatistic {
			s.recalculateLongTermBucket(ctx, metadataID, record.PeriodStart.Truncate(time.Hour))
			if update.PeriodStart != nil {
				s.recalculateLongTermBucket(ctx, metadataID, update.PeriodStart.Truncate(time.Hour))
			}
		}
		return nil
	})
}

// DeleteStatistic removes one aggregate row. The same source-data guard as
// for updates applies; the recorder would simply write the bucket again.
func (s *Service) DeleteStatistic(ctx context.Context, request models.DeleteStatisticRequest) (err error) {
	defer func() { observe("delete_statistic", err) }()

	statType, err := parseStatisticType(request.StatisticType)
	if err != nil {
		return err
	}

	return s.gate.Run(ctx, func() error {
		record, metadataID, gateErr := s.repo.GetStatistic(ctx, statType, request.ID)
		if gateErr != nil {
			return gateErr
		}
		guarded, gateErr := s.hasSourceData(ctx, metadataID, record)
		if gateErr != nil {
			return gateErr
		}
		if guarded {
			return models.ErrStatisticSourceData
		}
		if gateErr = s.repo.DeleteStatistic(ctx, statType, request.ID); gateErr != nil {
			return gateErr
		}

		if statType == datamodel.ShortTermStatistic {
			s.recalculateLongTermBucket(ctx, metadataID, record.PeriodStart.Truncate(time.Hour))
		}
		return nil
	})
}

// hasSourceData reports whether the record's period still holds the data it
// is derived from: state rows for a short-term bucket, short-term rows for a
// long-term bucket.
func (s *Service) hasSourceData(ctx context.Context, statMetadataID int64, record datamodel.StatisticRecord) (bool, error) {
	if record.Type == datamodel.ShortTermStatistic {
		handle, err := s.repo.ResolveEntity(ctx, record.EntityID)
		if err != nil {
			if errors.Is(err, models.ErrEntityNotFound) {
				return false, nil
			}
			return false, err
		}
		count, err := s.repo.CountStatesInPeriod(ctx, handle, record.PeriodStart, record.Type.Period())
		if err != nil {
			return false, err
		}
		return count > 0, nil
	}

	count, err := s.repo.CountShortTermInPeriod(ctx, statMetadataID, record.PeriodStart, record.Type.Period())
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// recalculateForRecordChange refreshes the statistics buckets touched by a
// committed record write. It is best effort: failures are logged and never
// surfaced, since the record operation itself already succeeded.
func (s *Service) recalculateForRecordChange(_ context.Context, entityID string, timestamps ...time.Time) {
	if len(timestamps) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recalculationTimeout)
	defer cancel()

	err := s.gate.Run(ctx, func() error {
		statMetadataID, gateErr := s.repo.ResolveStatisticMeta(ctx, entityID)
		if gateErr != nil {
			if errors.Is(gateErr, models.ErrEntityNotFound) {
				return nil
			}
			return gateErr
		}
		handle, gateErr := s.repo.ResolveEntity(ctx, entityID)
		if gateErr != nil {
			return gateErr
		}

		buckets := make(map[time.Time]struct{})
		hours := make(map[time.Time]struct{})
		for _, ts := range timestamps {
			buckets[ts.Truncate(5*time.Minute)] = struct{}{}
			hours[ts.Truncate(time.Hour)] = struct{}{}
		}
		for bucket := range buckets {
			s.recalculateShortTermBucket(ctx, statMetadataID, handle, bucket)
		}
		for hour := range hours {
			s.recalculateLongTermBucket(ctx, statMetadataID, hour)
		}
		return nil
	})
	if err != nil {
		zap.S().Warnf("Statistics recalculation for %s skipped: %s", entityID, err)
	}
}

// recalculateShortTermBucket rewrites one 5-minute bucket from the numeric
// states inside it. Buckets without numeric states are left untouched.
func (s *Service) recalculateShortTermBucket(ctx context.Context, statMetadataID int64, handle datamodel.EntityHandle, bucket time.Time) {
	values, err := s.repo.NumericStatesInPeriod(ctx, handle, bucket, 5*time.Minute)
	if err != nil {
		zap.S().Warnf("Short-term recalculation for %s at %s skipped: %s", handle.EntityID, bucket, err)
		return
	}
	if len(values) == 0 {
		return
	}

	mean, min, max := summarize(values)
	last := values[len(values)-1]
	found, err := s.repo.RecalculateShortTerm(ctx, statMetadataID, bucket, &mean, &min, &max, &last)
	if err != nil {
		zap.S().Warnf("Short-term recalculation for %s at %s failed: %s", handle.EntityID, bucket, err)
		return
	}
	if found {
		zap.S().Debugf("Recalculated short-term bucket %s for %s", bucket, handle.EntityID)
	}
}

// recalculateLongTermBucket rewrites one hourly bucket from its 5-minute
// buckets.
func (s *Service) recalculateLongTermBucket(ctx context.Context, statMetadataID int64, hour time.Time) {
	aggregates, err := s.repo.ShortTermAggregatesInHour(ctx, statMetadataID, hour)
	if err != nil {
		zap.S().Warnf("Long-term recalculation at %s skipped: %s", hour, err)
		return
	}
	if len(aggregates) == 0 {
		return
	}

	mean, min, max, state := combineAggregates(aggregates)
	found, err := s.repo.RecalculateLongTerm(ctx, statMetadataID, hour, mean, min, max, state)
	if err != nil {
		zap.S().Warnf("Long-term recalculation at %s failed: %s", hour, err)
		return
	}
	if found {
		zap.S().Debugf("Recalculated long-term bucket %s", hour)
	}
}

// summarize computes mean, min and max of a non-empty value slice.
func summarize(values []float64) (mean float64, min float64, max float64) {
	min = values[0]
	max = values[0]
	var sum float64
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return sum / float64(len(values)), min, max
}

// combineAggregates folds the hour's 5-minute buckets into the hourly values:
// the mean of means, the lowest min, the highest max and the last state.
func combineAggregates(aggregates []repository.ShortTermAggregate) (mean, min, max, state *float64) {
	var meanSum float64
	var meanCount int
	for _, aggregate := range aggregates {
		if aggregate.Mean != nil {
			meanSum += *aggregate.Mean
			meanCount++
		}
		if aggregate.Min != nil && (min == nil || *aggregate.Min < *min) {
			v := *aggregate.Min
			min = &v
		}
		if aggregate.Max != nil && (max == nil || *aggregate.Max > *max) {
			v := *aggregate.Max
			max = &v
		}
		if aggregate.State != nil {
			v := *aggregate.State
			state = &v
		}
	}
	if meanCount > 0 {
		v := meanSum / float64(meanCount)
		mean = &v
	}
	return mean, min, max, state
}
