package internal

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

// ErrNotAnObject is returned by DecodeAttributes when the payload is valid
// JSON but not an object at the top level (arrays and scalars are rejected).
var ErrNotAnObject = errors.New("attributes must be a JSON object")

// DecodeAttributes parses the transport representation of a record's
// attribute map. An empty or all-whitespace payload decodes to an empty map,
// matching how the recorder stores rows without attributes.
func DecodeAttributes(text string) (map[string]interface{}, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]interface{}{}, nil
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}
	attributes, ok := raw.(map[string]interface{})
	if !ok {
		return nil, ErrNotAnObject
	}
	return attributes, nil
}

// EncodeAttributes serializes an attribute map for storage. Round-tripping
// through DecodeAttributes is lossless for any map DecodeAttributes accepts.
func EncodeAttributes(attributes map[string]interface{}) (string, error) {
	if attributes == nil {
		return "{}", nil
	}
	encoded, err := json.Marshal(attributes)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
