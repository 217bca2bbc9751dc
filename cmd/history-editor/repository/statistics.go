package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hass-tools/history-editor/cmd/history-editor/models"
	"github.com/hass-tools/history-editor/pkg/datamodel"
	"github.com/jackc/pgx/v5"
)

// StatisticUpdate carries the fields of a partial aggregate update. Nil
// fields are left untouched.
type StatisticUpdate struct {
	Mean        *float64
	Min         *float64
	Max         *float64
	Sum         *float64
	State       *float64
	PeriodStart *time.Time
}

// ShortTermAggregate is one 5-minute bucket as read back for long-term
// recalculation.
type ShortTermAggregate struct {
	PeriodStart time.Time
	Mean        *float64
	Min         *float64
	Max         *float64
	State       *float64
}

// statisticsTable maps a statistic type to its table. Callers validate the
// type first; the default keeps the query well-formed either way.
func statisticsTable(statType datamodel.StatisticType) string {
	if statType == datamodel.ShortTermStatistic {
		return "statistics_short_term"
	}
	return "statistics"
}

// ResolveStatisticMeta maps an entity id to its statistics_meta row id. The
// statistics tables key on their own metadata, distinct from states_meta.
func (r *Repository) ResolveStatisticMeta(ctx context.Context, entityID string) (int64, error) {
	var metadataID int64
	err := r.db.QueryRow(ctx,
		`SELECT id FROM statistics_meta WHERE statistic_id = $1`,
		entityID).Scan(&metadataID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrEntityNotFound
		}
		return 0, r.storageError("resolve statistic meta", err, "entityID", entityID)
	}
	return metadataID, nil
}

// SelectStatistics returns the entity's aggregate rows from the requested
// table, newest bucket first, optionally bounded by [start, end].
func (r *Repository) SelectStatistics(
	ctx context.Context,
	metadataID int64,
	entityID string,
	statType datamodel.StatisticType,
	limit int32,
	start *time.Time,
	end *time.Time) ([]datamodel.StatisticRecord, error) {

	query := fmt.Sprintf(
		`SELECT id, start_ts, mean, min, max, sum, state, last_reset_ts
		FROM %s WHERE metadata_id = $1`, statisticsTable(statType))
	args := []interface{}{metadataID}

	if start != nil {
		args = append(args, *start)
		query += fmt.Sprintf(" AND start_ts >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += fmt.Sprintf(" AND start_ts <= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY start_ts DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.storageError("select statistics", err, "entityID", entityID)
	}
	defer rows.Close()

	records := make([]datamodel.StatisticRecord, 0)
	for rows.Next() {
		record := datamodel.StatisticRecord{EntityID: entityID, Type: statType}
		err = rows.Scan(&record.ID, &record.PeriodStart,
			&record.Mean, &record.Min, &record.Max, &record.Sum, &record.State, &record.LastReset)
		if err != nil {
			return nil, r.storageError("select statistics", err, "entityID", entityID)
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, r.storageError("select statistics", err, "entityID", entityID)
	}
	return records, nil
}

// GetStatistic fetches a single aggregate row by id, along with its
// statistics_meta id and entity id.
func (r *Repository) GetStatistic(
	ctx context.Context,
	statType datamodel.StatisticType,
	id int64) (datamodel.StatisticRecord, int64, error) {

	record := datamodel.StatisticRecord{ID: id, Type: statType}
	var metadataID int64
	query := fmt.Sprintf(
		`SELECT s.metadata_id, m.statistic_id, s.start_ts, s.mean, s.min, s.max, s.sum, s.state, s.last_reset_ts
		FROM %s s
		JOIN statistics_meta m ON s.metadata_id = m.id
		WHERE s.id = $1`, statisticsTable(statType))
	err := r.db.QueryRow(ctx, query, id).Scan(
		&metadataID, &record.EntityID, &record.PeriodStart,
		&record.Mean, &record.Min, &record.Max, &record.Sum, &record.State, &record.LastReset)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return datamodel.StatisticRecord{}, 0, models.ErrRecordNotFound
		}
		return datamodel.StatisticRecord{}, 0, r.storageError("get statistic", err, "id", id)
	}
	return record, metadataID, nil
}

// UpdateStatistic applies a partial update to one aggregate row.
func (r *Repository) UpdateStatistic(
	ctx context.Context,
	statType datamodel.StatisticType,
	id int64,
	update StatisticUpdate) error {

	setClauses := make([]string, 0, 6)
	args := []interface{}{id}

	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Mean != nil {
		appendSet("mean", *update.Mean)
	}
	if update.Min != nil {
		appendSet("min", *update.Min)
	}
	if update.Max != nil {
		appendSet("max", *update.Max)
	}
	if update.Sum != nil {
		appendSet("sum", *update.Sum)
	}
	if update.State != nil {
		appendSet("state", *update.State)
	}
	if update.PeriodStart != nil {
		appendSet("start_ts", *update.PeriodStart)
	}
	if len(setClauses) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1",
		statisticsTable(statType), strings.Join(setClauses, ", "))
	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.storageError("update statistic", err, "id", id)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// DeleteStatistic removes one aggregate row.
func (r *Repository) DeleteStatistic(ctx context.Context, statType datamodel.StatisticType, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", statisticsTable(statType))
	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return r.storageError("delete statistic", err, "id", id)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// CountStatesInPeriod counts the entity's state rows whose last_updated falls
// in [periodStart, periodStart+period). A short-term bucket with live states
// underneath it must not be edited directly.
func (r *Repository) CountStatesInPeriod(
	ctx context.Context,
	handle datamodel.EntityHandle,
	periodStart time.Time,
	period time.Duration) (int64, error) {

	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM states
		WHERE metadata_id = $1 AND last_updated >= $2 AND last_updated < $3`,
		handle.MetadataID, periodStart, periodStart.Add(period)).Scan(&count)
	if err != nil {
		return 0, r.storageError("count states in period", err, "entityID", handle.EntityID)
	}
	return count, nil
}

// CountShortTermInPeriod counts short-term buckets inside [periodStart,
// periodStart+period). A long-term bucket with short-term rows underneath it
// must not be edited directly.
func (r *Repository) CountShortTermInPeriod(
	ctx context.Context,
	statMetadataID int64,
	periodStart time.Time,
	period time.Duration) (int64, error) {

	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM statistics_short_term
		WHERE metadata_id = $1 AND start_ts >= $2 AND start_ts < $3`,
		statMetadataID, periodStart, periodStart.Add(period)).Scan(&count)
	if err != nil {
		return 0, r.storageError("count short-term statistics in period", err, "metadataID", statMetadataID)
	}
	return count, nil
}

// NumericStatesInPeriod returns the numeric state values of the entity inside
// [periodStart, periodStart+period), oldest first. Non-numeric states are
// skipped by the cast guard in SQL.
func (r *Repository) NumericStatesInPeriod(
	ctx context.Context,
	handle datamodel.EntityHandle,
	periodStart time.Time,
	period time.Duration) ([]float64, error) {

	rows, err := r.db.Query(ctx,
		`SELECT state::double precision FROM states
		WHERE metadata_id = $1 AND last_updated >= $2 AND last_updated < $3
		AND state ~ '^-?[0-9]+(\.[0-9]+)?$'
		ORDER BY last_updated ASC`,
		handle.MetadataID, periodStart, periodStart.Add(period))
	if err != nil {
		return nil, r.storageError("select numeric states in period", err, "entityID", handle.EntityID)
	}
	defer rows.Close()

	values := make([]float64, 0)
	for rows.Next() {
		var value float64
		if err = rows.Scan(&value); err != nil {
			return nil, r.storageError("select numeric states in period", err, "entityID", handle.EntityID)
		}
		values = append(values, value)
	}
	if err = rows.Err(); err != nil {
		return nil, r.storageError("select numeric states in period", err, "entityID", handle.EntityID)
	}
	return values, nil
}

// RecalculateShortTerm rewrites the aggregates of the short-term bucket at
// periodStart from freshly computed values. It reports whether such a bucket
// exists at all.
func (r *Repository) RecalculateShortTerm(
	ctx context.Context,
	statMetadataID int64,
	periodStart time.Time,
	mean, min, max, state *float64) (bool, error) {

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE statistics_short_term SET mean = $3, min = $4, max = $5, state = $6
		WHERE metadata_id = $1 AND start_ts = $2`,
		statMetadataID, periodStart, mean, min, max, state)
	if err != nil {
		return false, r.storageError("recalculate short-term statistic", err, "metadataID", statMetadataID)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// ShortTermAggregatesInHour returns the short-term buckets inside the hour
// starting at hourStart, oldest first. Long-term recalculation derives its
// values from these.
func (r *Repository) ShortTermAggregatesInHour(
	ctx context.Context,
	statMetadataID int64,
	hourStart time.Time) ([]ShortTermAggregate, error) {

	rows, err := r.db.Query(ctx,
		`SELECT start_ts, mean, min, max, state FROM statistics_short_term
		WHERE metadata_id = $1 AND start_ts >= $2 AND start_ts < $3
		ORDER BY start_ts ASC`,
		statMetadataID, hourStart, hourStart.Add(time.Hour))
	if err != nil {
		return nil, r.storageError("select short-term aggregates in hour", err, "metadataID", statMetadataID)
	}
	defer rows.Close()

	aggregates := make([]ShortTermAggregate, 0)
	for rows.Next() {
		var aggregate ShortTermAggregate
		err = rows.Scan(&aggregate.PeriodStart, &aggregate.Mean, &aggregate.Min, &aggregate.Max, &aggregate.State)
		if err != nil {
			return nil, r.storageError("select short-term aggregates in hour", err, "metadataID", statMetadataID)
		}
		aggregates = append(aggregates, aggregate)
	}
	if err = rows.Err(); err != nil {
		return nil, r.storageError("select short-term aggregates in hour", err, "metadataID", statMetadataID)
	}
	return aggregates, nil
}

// RecalculateLongTerm rewrites the aggregates of the long-term bucket at
// hourStart. It reports whether such a bucket exists.
func (r *Repository) RecalculateLongTerm(
	ctx context.Context,
	statMetadataID int64,
	hourStart time.Time,
	mean, min, max, state *float64) (bool, error) {

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE statistics SET mean = $3, min = $4, max = $5, state = $6
		WHERE metadata_id = $1 AND start_ts = $2`,
		statMetadataID, hourStart, mean, min, max, state)
	if err != nil {
		return false, r.storageError("recalculate long-term statistic", err, "metadataID", statMetadataID)
	}
	return cmdTag.RowsAffected() > 0, nil
}
