package snapshot

import (
	"errors"
	"fmt"

	"github.com/joshuxchn/qloo/internal/store"
)

var (
	errRequired   = errors.New("is required")
	errNegative   = errors.New("cannot be negative")
	errUnknownVal = errors.New("is not a recognized value")
)

// FieldError reports a snapshot field that could not be decoded or encoded.
type FieldError struct {
	Field string
	Value string
	Err   error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%v: field %q: %v", store.ErrSerialization, e.Field, e.Err)
	}
	return fmt.Sprintf("%v: field %q value %q: %v", store.ErrSerialization, e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is makes every FieldError match store.ErrSerialization.
func (e *FieldError) Is(target error) bool {
	return target == store.ErrSerialization
}

func fieldError(field, value string, err error) *FieldError {
	return &FieldError{Field: field, Value: value, Err: err}
}
