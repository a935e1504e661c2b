package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errInvalidJSON = errors.New("invalid JSON")

func unmarshal(value string, out any) error {
	err := json.Unmarshal([]byte(value), out)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidJSON, err)
	}

	return nil
}

// marshal encodes a blob column.
func marshal(value any) (*string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode blob: %w", err)
	}

	return ptr(string(data)), nil
}

// nonNil turns a nil slice into an empty one so it encodes as [].
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}

// rawBlob validates a single opaque JSON value. Absent, empty and null are nil.
func (d *decoder) rawBlob(field string, value *string) json.RawMessage {
	if value == nil || *value == "" || *value == "null" {
		return nil
	}

	if !json.Valid([]byte(*value)) {
		d.fail(field, errInvalidJSON)

		return nil
	}

	return json.RawMessage(*value)
}

func rawPtr(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}

	return ptr(string(raw))
}
