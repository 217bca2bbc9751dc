package datamodel

import (
	"regexp"
	"time"
)

// StateRecord is one stored observation of an entity: its state string, the
// free-form attribute map and the two instants the recorder keeps per row.
// RecordID is assigned by the store and never reused.
type StateRecord struct {
	RecordID    int64
	EntityID    string
	State       string
	Attributes  map[string]interface{}
	LastChanged time.Time
	LastUpdated time.Time
}

// EntityHandle is the store-internal identity of an entity, resolved from its
// textual entity id via the states_meta table.
type EntityHandle struct {
	MetadataID int64
	EntityID   string
}

// StatisticType selects between the hourly long-term and the 5-minute
// short-term statistics tables.
type StatisticType string

const (
	LongTermStatistic  StatisticType = "long_term"
	ShortTermStatistic StatisticType = "short_term"
)

// Period returns the bucket length of the statistic type.
func (t StatisticType) Period() time.Duration {
	if t == ShortTermStatistic {
		return 5 * time.Minute
	}
	return time.Hour
}

// Valid reports whether t is one of the two known statistic types.
func (t StatisticType) Valid() bool {
	return t == LongTermStatistic || t == ShortTermStatistic
}

// StatisticRecord is one aggregate row from the statistics or
// statistics_short_term table. HasSourceData marks rows whose period still
// contains underlying source data; such rows cannot be edited directly.
type StatisticRecord struct {
	ID            int64
	EntityID      string
	Type          StatisticType
	PeriodStart   time.Time
	Mean          *float64
	Min           *float64
	Max           *float64
	Sum           *float64
	State         *float64
	LastReset     *time.Time
	HasSourceData bool
}

var entityIDRegex = regexp.MustCompile(`^[a-z0-9_]+\.[a-z0-9_]+$`)

// ValidEntityID reports whether id has the dotted domain.object_id form the
// host uses, e.g. "sensor.temperature".
func ValidEntityID(id string) bool {
	return entityIDRegex.MatchString(id)
}
