package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hass-tools/history-editor/cmd/history-editor/models"
	"github.com/hass-tools/history-editor/pkg/datamodel"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestResolveStatisticMeta(t *testing.T) {
	mock, repo := createMockRepository(t)
	defer mock.Close()

	t.Run("known entity", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id FROM statistics_meta WHERE statistic_id = \$1`).
			WithArgs("sensor.energy").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

		metadataID, err := repo.ResolveStatisticMeta(context.Background(), "sensor.energy")
		assert.NoError(t, err)
		assert.Equal(t, int64(3), metadataID)
	})

	t.Run("entity without statistics", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id FROM statistics_meta WHERE statistic_id = \$1`).
			WithArgs("sensor.nope").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.ResolveStatisticMeta(context.Background(), "sensor.nope")
		assert.ErrorIs(t, err, models.ErrEntityNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectStatistics(t *testing.T) {
	mock, repo := createMockRepository(t)
	defer mock.Close()

	hour := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("long-term table, newest first", func(t *testing.T) {
		mock.ExpectQuery(`FROM statistics WHERE metadata_id = \$1 ORDER BY start_ts DESC LIMIT \$2`).
			WithArgs(int64(3), int32(100)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "start_ts", "mean", "min", "max", "sum", "state", "last_reset_ts"}).
				AddRow(int64(2), hour.Add(time.Hour), floatPtr(21.0), floatPtr(20.0), floatPtr(22.0), nil, nil, nil).
				AddRow(int64(1), hour, floatPtr(20.5), floatPtr(20.0), floatPtr(21.0), nil, nil, nil))

		records, err := repo.SelectStatistics(context.Background(), 3, "sensor.energy", datamodel.LongTermStatistic, 100, nil, nil)
		assert.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, int64(2), records[0].ID)
		assert.Equal(t, datamodel.LongTermStatistic, records[0].Type)
		assert.Equal(t, 21.0, *records[0].Mean)
		assert.Nil(t, records[0].Sum)
	})

	t.Run("short-term table is selected by type", func(t *testing.T) {
		mock.ExpectQuery(`FROM statistics_short_term WHERE metadata_id = \$1 ORDER BY start_ts DESC LIMIT \$2`).
			WithArgs(int64(3), int32(10)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "start_ts", "mean", "min", "max", "sum", "state", "last_reset_ts"}))

		records, err := repo.SelectStatistics(context.Background(), 3, "sensor.energy", datamodel.ShortTermStatistic, 10, nil, nil)
		assert.NoError(t, err)
		assert.Empty(t, records)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatistic(t *testing.T) {
	mock, repo := createMockRepository(t)
	defer mock.Close()

	hour := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`FROM statistics s\s+JOIN statistics_meta m ON s.metadata_id = m.id\s+WHERE s.id = \$1`).
			WithArgs(int64(9)).
			WillReturnRows(pgxmock.NewRows([]string{"metadata_id", "statistic_id", "start_ts", "mean", "min", "max", "sum", "state", "last_reset_ts"}).
				AddRow(int64(3), "sensor.energy", hour, floatPtr(20.5), floatPtr(20.0), floatPtr(21.0), floatPtr(100.0), floatPtr(50.0), nil))

		record, metadataID, err := repo.GetStatistic(context.Background(), datamodel.LongTermStatistic, 9)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), metadataID)
		assert.Equal(t, "sensor.energy", record.EntityID)
		assert.Equal(t, hour, record.PeriodStart)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery(`WHERE s.id = \$1`).
			WithArgs(int64(404)).
			WillReturnError(pgx.ErrNoRows)

		_, _, err := repo.GetStatistic(context.Background(), datamodel.LongTermStatistic, 404)
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatistic(t *testing.T) {
	mock, repo := createMockRepository(t)
	defer mock.Close()

	t.Run("partial update", func(t *testing.T) {
		mock.ExpectExec(`UPDATE statistics SET mean = \$2, max = \$3 WHERE id = \$1`).
			WithArgs(int64(9), 21.5, 23.0).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatistic(context.Background(), datamodel.LongTermStatistic, 9, StatisticUpdate{
			Mean: floatPtr(21.5),
			Max:  floatPtr(23.0),
		})
		assert.NoError(t, err)
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE statistics_short_term SET sum = \$2 WHERE id = \$1`).
			WithArgs(int64(404), 10.0).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatistic(context.Background(), datamodel.ShortTermStatistic, 404, StatisticUpdate{Sum: floatPtr(10.0)})
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteStatistic(t *testing.T) {
	mock, repo := createMockRepository(t)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM statistics_short_term WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.DeleteStatistic(context.Background(), datamodel.ShortTermStatistic, 9)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodCounts(t *testing.T) {
	mock, repo := createMockRepository(t)
	defer mock.Close()

	handle := datamodel.EntityHandle{MetadataID: 7, EntityID: "sensor.energy"}
	bucket := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("states in a short-term bucket", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM states`).
			WithArgs(int64(7), bucket, bucket.Add(5*time.Minute)).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))

		count, err := repo.CountStatesInPeriod(context.Background(), handle, bucket, 5*time.Minute)
		assert.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("short-term rows in a long-term bucket", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM statistics_short_term`).
			WithArgs(int64(3), bucket, bucket.Add(time.Hour)).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))

		count, err := repo.CountShortTermInPeriod(context.Background(), 3, bucket, time.Hour)
		assert.NoError(t, err)
		assert.Equal(t, int64(12), count)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecalculationReads(t *testing.T) {
	mock, repo := createMockRepository(t)
	defer mock.Close()

	handle := datamodel.EntityHandle{MetadataID: 7, EntityID: "sensor.energy"}
	bucket := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("numeric states only", func(t *testing.T) {
		mock.ExpectQuery(`SELECT state::double precision FROM states`).
			WithArgs(int64(7), bucket, bucket.Add(5*time.Minute)).
			WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(20.0).AddRow(21.0).AddRow(22.0))

		values, err := repo.NumericStatesInPeriod(context.Background(), handle, bucket, 5*time.Minute)
		assert.NoError(t, err)
		assert.Equal(t, []float64{20.0, 21.0, 22.0}, values)
	})

	t.Run("short-term aggregates in hour", func(t *testing.T) {
		mock.ExpectQuery(`SELECT start_ts, mean, min, max, state FROM statistics_short_term`).
			WithArgs(int64(3), bucket, bucket.Add(time.Hour)).
			WillReturnRows(pgxmock.NewRows([]string{"start_ts", "mean", "min", "max", "state"}).
				AddRow(bucket, floatPtr(20.5), floatPtr(20.0), floatPtr(21.0), floatPtr(20.8)).
				AddRow(bucket.Add(5*time.Minute), floatPtr(21.5), floatPtr(21.0), floatPtr(22.0), floatPtr(21.9)))

		aggregates, err := repo.ShortTermAggregatesInHour(context.Background(), 3, bucket)
		assert.NoError(t, err)
		assert.Len(t, aggregates, 2)
		assert.Equal(t, bucket, aggregates[0].PeriodStart)
		assert.Equal(t, 21.5, *aggregates[1].Mean)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecalculationWrites(t *testing.T) {
	mock, repo := createMockRepository(t)
	defer mock.Close()

	bucket := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("short-term bucket exists", func(t *testing.T) {
		mock.ExpectExec(`UPDATE statistics_short_term SET mean = \$3, min = \$4, max = \$5, state = \$6`).
			WithArgs(int64(3), bucket, floatPtr(21.0), floatPtr(20.0), floatPtr(22.0), floatPtr(22.0)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		found, err := repo.RecalculateShortTerm(context.Background(), 3, bucket,
			floatPtr(21.0), floatPtr(20.0), floatPtr(22.0), floatPtr(22.0))
		assert.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("long-term bucket missing", func(t *testing.T) {
		mock.ExpectExec(`UPDATE statistics SET mean = \$3, min = \$4, max = \$5, state = \$6`).
			WithArgs(int64(3), bucket, floatPtr(21.0), floatPtr(20.0), floatPtr(22.0), (*float64)(nil)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		found, err := repo.RecalculateLongTerm(context.Background(), 3, bucket,
			floatPtr(21.0), floatPtr(20.0), floatPtr(22.0), nil)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
