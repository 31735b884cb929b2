package domain

import (
	"bytes"
	"encoding/json"
)

// Optional is a tri-state patch field distinguishing "absent" (keep the stored
// value), "present null" (clear it), and "present value" (set it). The zero
// value is absent.
type Optional[T any] struct {
	present bool
	null    bool
	value   T
}

// NewOptional returns a present Optional holding the value.
func NewOptional[T any](value T) Optional[T] {
	return Optional[T]{present: true, value: value}
}

// NullOptional returns a present Optional carrying an explicit null.
func NullOptional[T any]() Optional[T] {
	return Optional[T]{present: true, null: true}
}

// Present reports whether the field appeared in the input at all.
func (o Optional[T]) Present() bool {
	return o.present
}

// Null reports whether the field was supplied as an explicit null.
func (o Optional[T]) Null() bool {
	return o.present && o.null
}

// Get returns the value and whether a non-null value is present.
func (o Optional[T]) Get() (T, bool) {
	if !o.present || o.null {
		var zero T
		return zero, false
	}
	return o.value, true
}

// ValueOr returns the contained value or the fallback when absent/null.
func (o Optional[T]) ValueOr(fallback T) T {
	if v, ok := o.Get(); ok {
		return v
	}
	return fallback
}

var jsonNull = []byte("null")

// UnmarshalJSON marks the field present; an explicit JSON null sets the null
// state instead of a value.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.present = true
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		o.null = true
		var zero T
		o.value = zero
		return nil
	}
	o.null = false
	return json.Unmarshal(data, &o.value)
}

// MarshalJSON renders the value, or null for absent/null states.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.present || o.null {
		return jsonNull, nil
	}
	return json.Marshal(o.value)
}
