package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hass-tools/history-editor/cmd/history-editor/database"
	"github.com/hass-tools/history-editor/cmd/history-editor/models"
	"github.com/hass-tools/history-editor/internal"
	"github.com/hass-tools/history-editor/pkg/datamodel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Repository translates validated record and statistics operations into SQL
// against the recorder tables. It performs no business validation; callers
// pass resolved handles and parsed values. Every method is blocking and must
// be run through the concurrency gate, never on a request-serving goroutine
// directly.
type Repository struct {
	db database.PgxIface
}

func New(db database.PgxIface) *Repository {
	return &Repository{db: db}
}

// RecordUpdate carries the fields of a partial record update. Nil fields are
// left untouched by Update.
type RecordUpdate struct {
	State       *string
	Attributes  *string
	LastChanged *time.Time
	LastUpdated *time.Time
}

// ResolveEntity maps an entity id to its states_meta handle. The lookup is
// fresh on every call; the host keeps the registry current and caching here
// would risk serving a stale resolution.
func (r *Repository) ResolveEntity(ctx context.Context, entityID string) (datamodel.EntityHandle, error) {
	var metadataID int64
	err := r.db.QueryRow(ctx,
		`SELECT metadata_id FROM states_meta WHERE entity_id = $1`,
		entityID).Scan(&metadataID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return datamodel.EntityHandle{}, models.ErrEntityNotFound
		}
		return datamodel.EntityHandle{}, r.storageError("resolve entity", err, "entityID", entityID)
	}
	return datamodel.EntityHandle{MetadataID: metadataID, EntityID: entityID}, nil
}

// ListEntities returns all entity ids known to the recorder, sorted.
func (r *Repository) ListEntities(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT entity_id FROM states_meta ORDER BY entity_id`)
	if err != nil {
		return nil, r.storageError("list entities", err)
	}
	defer rows.Close()

	entities := make([]string, 0)
	for rows.Next() {
		var entityID string
		if err = rows.Scan(&entityID); err != nil {
			return nil, r.storageError("list entities", err)
		}
		entities = append(entities, entityID)
	}
	if err = rows.Err(); err != nil {
		return nil, r.storageError("list entities", err)
	}
	return entities, nil
}

// SelectRecords returns the entity's records ordered by last_updated
// descending, optionally bounded by [start, end], truncated to limit. An
// empty result is not an error.
func (r *Repository) SelectRecords(
	ctx context.Context,
	handle datamodel.EntityHandle,
	limit int32,
	start *time.Time,
	end *time.Time) ([]datamodel.StateRecord, error) {

	query := `SELECT s.state_id, s.state, s.attributes, s.last_changed, s.last_updated
		FROM states s
		WHERE s.metadata_id = $1`
	args := []interface{}{handle.MetadataID}

	if start != nil {
		args = append(args, *start)
		query += fmt.Sprintf(" AND s.last_updated >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += fmt.Sprintf(" AND s.last_updated <= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY s.last_updated DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.storageError("select records", err, "entityID", handle.EntityID)
	}
	defer rows.Close()

	records := make([]datamodel.StateRecord, 0)
	for rows.Next() {
		record := datamodel.StateRecord{EntityID: handle.EntityID}
		var attributesText *string
		err = rows.Scan(&record.RecordID, &record.State, &attributesText, &record.LastChanged, &record.LastUpdated)
		if err != nil {
			return nil, r.storageError("select records", err, "entityID", handle.EntityID)
		}
		record.Attributes = decodeStoredAttributes(record.RecordID, attributesText)
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, r.storageError("select records", err, "entityID", handle.EntityID)
	}
	return records, nil
}

// GetRecord fetches a single record by id.
func (r *Repository) GetRecord(ctx context.Context, recordID int64) (datamodel.StateRecord, error) {
	record := datamodel.StateRecord{RecordID: recordID}
	var attributesText *string
	err := r.db.QueryRow(ctx,
		`SELECT m.entity_id, s.state, s.attributes, s.last_changed, s.last_updated
		FROM states s
		JOIN states_meta m ON s.metadata_id = m.metadata_id
		WHERE s.state_id = $1`,
		recordID).Scan(&record.EntityID, &record.State, &attributesText, &record.LastChanged, &record.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return datamodel.StateRecord{}, models.ErrRecordNotFound
		}
		return datamodel.StateRecord{}, r.storageError("get record", err, "recordID", recordID)
	}
	record.Attributes = decodeStoredAttributes(recordID, attributesText)
	return record, nil
}

// InsertRecord persists a new record and returns the assigned record id.
func (r *Repository) InsertRecord(
	ctx context.Context,
	handle datamodel.EntityHandle,
	state string,
	attributesText string,
	lastChanged time.Time,
	lastUpdated time.Time) (int64, error) {

	var recordID int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO states (metadata_id, state, attributes, last_changed, last_updated)
		VALUES ($1, $2, $3, $4, $5) RETURNING state_id`,
		handle.MetadataID, state, attributesText, lastChanged, lastUpdated).Scan(&recordID)
	if err != nil {
		return 0, r.storageError("insert record", err, "entityID", handle.EntityID)
	}
	return recordID, nil
}

// UpdateRecord applies a partial update to one row. The statement is atomic;
// concurrent updates of the same row resolve to whichever commits last.
func (r *Repository) UpdateRecord(ctx context.Context, recordID int64, update RecordUpdate) error {
	setClauses := make([]string, 0, 4)
	args := []interface{}{recordID}

	if update.State != nil {
		args = append(args, *update.State)
		setClauses = append(setClauses, fmt.Sprintf("state = $%d", len(args)))
	}
	if update.Attributes != nil {
		args = append(args, *update.Attributes)
		setClauses = append(setClauses, fmt.Sprintf("attributes = $%d", len(args)))
	}
	if update.LastChanged != nil {
		args = append(args, *update.LastChanged)
		setClauses = append(setClauses, fmt.Sprintf("last_changed = $%d", len(args)))
	}
	if update.LastUpdated != nil {
		args = append(args, *update.LastUpdated)
		setClauses = append(setClauses, fmt.Sprintf("last_updated = $%d", len(args)))
	}
	if len(setClauses) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE states SET %s WHERE state_id = $1", strings.Join(setClauses, ", "))
	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.storageError("update record", err, "recordID", recordID)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// DeleteRecord physically removes one row. References from newer rows
// (old_state_id) and dependent short-term statistics rows are cleared first
// so the delete cannot trip over foreign keys; everything happens in one
// transaction.
func (r *Repository) DeleteRecord(ctx context.Context, recordID int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return r.storageError("delete record", err, "recordID", recordID)
	}

	_, err = tx.Exec(ctx, `UPDATE states SET old_state_id = NULL WHERE old_state_id = $1`, recordID)
	if err != nil {
		r.rollback(ctx, tx, "delete record")
		return r.storageError("delete record", err, "recordID", recordID)
	}

	_, err = tx.Exec(ctx, `DELETE FROM statistics_short_term WHERE state_id = $1`, recordID)
	if err != nil {
		r.rollback(ctx, tx, "delete record")
		return r.storageError("delete record", err, "recordID", recordID)
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM states WHERE state_id = $1`, recordID)
	if err != nil {
		r.rollback(ctx, tx, "delete record")
		return r.storageError("delete record", err, "recordID", recordID)
	}
	if cmdTag.RowsAffected() == 0 {
		r.rollback(ctx, tx, "delete record")
		return models.ErrRecordNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return r.storageError("delete record", err, "recordID", recordID)
	}
	return nil
}

func (r *Repository) rollback(ctx context.Context, tx pgx.Tx, operation string) {
	if err := tx.Rollback(ctx); err != nil {
		zap.S().Errorf("Failed to rollback transaction for %s: %s", operation, err)
	}
}

// storageError logs the raw driver failure with its operation context and
// returns the sanitized StorageError the service hands upward.
func (r *Repository) storageError(operation string, err error, keysAndValues ...interface{}) error {
	fields := append([]interface{}{"operation", operation, "error", err}, keysAndValues...)
	if database.IsConnectionError(err) {
		zap.S().Errorw("PostgreSQL failed: connection exception", fields...)
	} else {
		zap.S().Errorw("PostgreSQL failed", fields...)
	}
	return models.NewStorageError(operation, err)
}

// decodeStoredAttributes parses the attributes column. Rows written by other
// recorder versions can carry NULL or junk; those decode to an empty map with
// a warning instead of failing the whole read, matching the host's behavior.
func decodeStoredAttributes(recordID int64, attributesText *string) map[string]interface{} {
	if attributesText == nil {
		return map[string]interface{}{}
	}
	attributes, err := internal.DecodeAttributes(*attributesText)
	if err != nil {
		zap.S().Warnf("Failed to parse attributes for record %d: %s", recordID, err)
		return map[string]interface{}{}
	}
	return attributes
}
