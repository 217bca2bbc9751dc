package services

import (
	"fmt"
	"time"

	"github.com/hass-tools/history-editor/cmd/history-editor/models"
	"github.com/hass-tools/history-editor/cmd/history-editor/repository"
	"github.com/hass-tools/history-editor/internal"
	"github.com/hass-tools/history-editor/pkg/datamodel"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rung/go-safecast"
)

const (
	minLimit = 1
	maxLimit = 1000

	entityListCacheKey = "entities"
	entityListCacheTTL = 30 * time.Second
)

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "history_editor_operations_total",
	Help: "Service operations by name and outcome.",
}, []string{"operation", "outcome"})

// Service implements the record and statistics operations on top of the
// repository. It owns all request validation; the repository below it only
// ever sees resolved handles and parsed values. Blocking storage work runs
// through the gate so the number of concurrent database calls stays bounded.
type Service struct {
	repo       *repository.Repository
	gate       *internal.Gate
	entityList *cache.Cache
}

func New(repo *repository.Repository, gate *internal.Gate) *Service {
	return &Service{
		repo:       repo,
		gate:       gate,
		entityList: cache.New(entityListCacheTTL, time.Minute),
	}
}

// observe records the outcome of one operation in the metrics.
func observe(operation string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case models.IsCallerError(err):
		outcome = "caller_error"
	default:
		outcome = "storage_error"
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// checkLimit validates the page size bounds and narrows the value for the
// repository.
func checkLimit(limit int) (int32, error) {
	if limit < minLimit || limit > maxLimit {
		return 0, models.ErrInvalidLimit
	}
	narrowed, err := safecast.Int32(limit)
	if err != nil {
		return 0, models.ErrInvalidLimit
	}
	return narrowed, nil
}

// parseOptionalTimestamp parses a caller-supplied timestamp, treating the
// empty string as absent.
func parseOptionalTimestamp(text string) (*time.Time, error) {
	if text == "" {
		return nil, nil
	}
	parsed, err := internal.ParseTimestamp(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTimestamp, text)
	}
	return &parsed, nil
}

// checkRange rejects inverted time windows. Open bounds are always fine.
func checkRange(start *time.Time, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return models.ErrInvalidRange
	}
	return nil
}

// checkEntityID rejects ids that cannot possibly resolve, before any storage
// round trip.
func checkEntityID(entityID string) error {
	if !datamodel.ValidEntityID(entityID) {
		return fmt.Errorf("%w: entity id must have the form domain.object_id", models.ErrInvalidInput)
	}
	return nil
}
