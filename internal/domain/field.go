package domain

import (
	"bytes"
	"encoding/json"
)

// fieldState distinguishes the three meanings a patch field can carry.
type fieldState uint8

const (
	fieldUnchanged fieldState = iota
	fieldCleared
	fieldAssigned
)

// Field is one entry of a partial update. The zero value means "leave the
// stored value alone"; Clear removes the stored value; Set replaces it.
//
// When decoded from JSON an absent key stays Unchanged, an explicit null
// becomes Clear and any other value becomes Set.
type Field[T any] struct {
	state fieldState
	value T
}

// Set returns a Field that replaces the stored value with v.
func Set[T any](v T) Field[T] {
	return Field[T]{state: fieldAssigned, value: v}
}

// Clear returns a Field that removes the stored value.
func Clear[T any]() Field[T] {
	return Field[T]{state: fieldCleared}
}

// IsUnchanged reports whether the field was omitted from the patch.
func (f Field[T]) IsUnchanged() bool { return f.state == fieldUnchanged }

// IsClear reports whether the patch asks for the stored value to be removed.
func (f Field[T]) IsClear() bool { return f.state == fieldCleared }

// IsSet reports whether the patch carries a replacement value.
func (f Field[T]) IsSet() bool { return f.state == fieldAssigned }

// Value returns the replacement value and true when the field is Set.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.state == fieldAssigned
}

// Apply folds the field into a pointer-typed current value.
func (f Field[T]) Apply(current *T) *T {
	switch f.state {
	case fieldCleared:
		return nil
	case fieldAssigned:
		v := f.value
		return &v
	default:
		return current
	}
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked for keys
// that are present, so absence naturally stays Unchanged.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}

// MapField converts a Field of one type into another, preserving its state.
func MapField[T, U any](f Field[T], fn func(T) U) Field[U] {
	switch f.state {
	case fieldCleared:
		return Clear[U]()
	case fieldAssigned:
		return Set(fn(f.value))
	default:
		return Field[U]{}
	}
}
