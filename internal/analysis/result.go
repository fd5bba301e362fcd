package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is either a populated section of the report or an explicit
// unavailable marker carrying a human-readable reason.
type Result[T any] struct {
	value  *T
	reason string
}

// Available wraps a computed section.
func Available[T any](v T) Result[T] { return Result[T]{value: &v} }

// Unavailable records why a section could not be computed.
func Unavailable[T any](reason string) Result[T] { return Result[T]{reason: reason} }

// Get returns the section and whether it was computed.
func (r Result[T]) Get() (T, bool) {
	if r.value == nil {
		var zero T
		return zero, false
	}
	return *r.value, true
}

func (r Result[T]) OK() bool { return r.value != nil }

// Reason is empty for available sections.
func (r Result[T]) Reason() string { return r.reason }

// MarshalJSON flattens the section's fields next to an "available" flag.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.value == nil {
		return json.Marshal(struct {
			Available bool   `json:"available"`
			Reason    string `json:"reason"`
		}{false, r.reason})
	}
	b, err := json.Marshal(r.value)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) < 2 || b[0] != '{' {
		return nil, fmt.Errorf("result payload must encode as a JSON object, got %q", b)
	}
	var buf bytes.Buffer
	buf.WriteString(`{"available":true`)
	if inner := bytes.TrimSpace(b[1 : len(b)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the flattened encoding produced by MarshalJSON.
func (r *Result[T]) UnmarshalJSON(b []byte) error {
	var head struct {
		Available bool   `json:"available"`
		Reason    string `json:"reason"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	if !head.Available {
		*r = Unavailable[T](head.Reason)
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Available(v)
	return nil
}
