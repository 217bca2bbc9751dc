package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimestamp(t *testing.T) {
	t.Run("RFC3339 with offset normalizes to UTC", func(t *testing.T) {
		parsed, err := ParseTimestamp("2024-03-01T13:00:00+01:00")
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), parsed)
		assert.Equal(t, time.UTC, parsed.Location())
	})

	t.Run("fractional seconds", func(t *testing.T) {
		parsed, err := ParseTimestamp("2024-03-01T12:00:00.123456Z")
		assert.NoError(t, err)
		assert.Equal(t, 123456000, parsed.Nanosecond())
	})

	t.Run("lenient layouts are read as UTC", func(t *testing.T) {
		parsed, err := ParseTimestamp("2024-03-01 12:30:00")
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), parsed)

		parsed, err = ParseTimestamp("2024-03-01")
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), parsed)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		for _, text := range []string{"yesterday", "12:00", "2024-13-01", "1709294400"} {
			_, err := ParseTimestamp(text)
			assert.Error(t, err, "expected %q to be rejected", text)
		}
	})
}

func TestUTCNow(t *testing.T) {
	assert.Equal(t, time.UTC, UTCNow().Location())
}
