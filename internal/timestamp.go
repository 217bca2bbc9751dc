package internal

import (
	"fmt"
	"time"
)

// timestampLayouts are tried in order. RFC3339 (with offset) is the canonical
// wire form; the two lenient layouts are interpreted as UTC. The set is fixed
// so parsing stays deterministic.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a caller-supplied timestamp string into an instant.
// The result is normalized to UTC.
func ParseTimestamp(text string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", text)
}

// UTCNow returns the current instant in UTC, used whenever a caller omits a
// timestamp.
func UTCNow() time.Time {
	return time.Now().UTC()
}
