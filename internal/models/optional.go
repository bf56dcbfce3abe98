package models

import "encoding/json"

// Optional is a field of a partial update. Set is true when the key was
// present in the payload, including an explicit null.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns a set Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

// IsZero lets `omitzero` drop unset fields when payloads are encoded.
func (o Optional[T]) IsZero() bool { return !o.Set }

// ApplyTo copies the value into dst when set.
func (o Optional[T]) ApplyTo(dst *T) {
	if o.Set {
		*dst = o.Value
	}
}
