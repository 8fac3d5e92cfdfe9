package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidValue is returned when a key or value cannot be stored: the key is
// empty or not valid UTF-8, or the value is not a well-formed JSON document.
var ErrInvalidValue = errors.New("invalid value")

// ValidateKey checks that key can identify a record.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key must not be empty", ErrInvalidValue)
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("%w: key is not valid UTF-8", ErrInvalidValue)
	}
	return nil
}

// ParseValue validates raw as a single JSON value of any kind (object, array,
// string, number, boolean or null) and returns it in compact form.
func ParseValue(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}

// MarshalValue encodes an arbitrary Go value as a compact JSON value.
func MarshalValue(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return ParseValue(data)
}
