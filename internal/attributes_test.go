package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeAttributes(t *testing.T) {
	t.Run("object payload", func(t *testing.T) {
		attributes, err := DecodeAttributes(`{"unit_of_measurement": "°C", "friendly_name": "Temp"}`)
		assert.NoError(t, err)
		assert.Equal(t, map[string]interface{}{
			"unit_of_measurement": "°C",
			"friendly_name":       "Temp",
		}, attributes)
	})

	t.Run("empty and whitespace decode to empty map", func(t *testing.T) {
		for _, text := range []string{"", "   ", "\n\t"} {
			attributes, err := DecodeAttributes(text)
			assert.NoError(t, err)
			assert.Empty(t, attributes)
		}
	})

	t.Run("malformed JSON is rejected", func(t *testing.T) {
		_, err := DecodeAttributes(`{not json`)
		assert.Error(t, err)
	})

	t.Run("non-object top level is rejected", func(t *testing.T) {
		for _, text := range []string{`[1, 2]`, `"text"`, `42`, `true`} {
			_, err := DecodeAttributes(text)
			assert.ErrorIs(t, err, ErrNotAnObject)
		}
	})

	t.Run("nested structures survive", func(t *testing.T) {
		attributes, err := DecodeAttributes(`{"options": ["a", "b"], "meta": {"depth": 2}}`)
		assert.NoError(t, err)
		assert.Len(t, attributes["options"], 2)
	})
}

func TestEncodeAttributesRoundTrip(t *testing.T) {
	original := map[string]interface{}{
		"unit_of_measurement": "°C",
		"precision":           0.1,
		"options":             []interface{}{"low", "high"},
	}

	encoded, err := EncodeAttributes(original)
	assert.NoError(t, err)

	decoded, err := DecodeAttributes(encoded)
	assert.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestEncodeAttributesNil(t *testing.T) {
	encoded, err := EncodeAttributes(nil)
	assert.NoError(t, err)
	assert.Equal(t, "{}", encoded)
}
