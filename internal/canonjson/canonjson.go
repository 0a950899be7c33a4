// Package canonjson serializes values as canonical JSON: object keys sorted
// lexicographically at every level, no insignificant whitespace. Stored award
// snapshots and badge metadata must be byte-stable so that equality checks and
// hashing downstream do not depend on map iteration order.
package canonjson

import (
	"encoding/json"
	"fmt"
)

// Marshal returns the canonical JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}
	// encoding/json sorts map keys and emits no whitespace, which is exactly
	// the canonical form once the value is reduced to maps/slices/primitives.
	return json.Marshal(norm)
}

// MarshalString is Marshal returning a string.
func MarshalString(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Canonicalize rewrites raw JSON into canonical form. It is a fixed point:
// Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("canonjson: invalid input: %w", err)
	}
	return json.Marshal(v)
}

// normalize round-trips v through encoding/json so that structs and typed
// maps collapse to the generic representation encoding/json sorts.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonjson: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("canonjson: %w", err)
	}
	return out, nil
}
