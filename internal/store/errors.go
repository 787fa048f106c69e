package store

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a store wraps exactly one of
// ErrConnection, ErrIntegrity, ErrNotFound, ErrSerialization, ErrConflict or
// ErrTransactionFailed, so callers can always determine the kind with
// errors.Is.
var (
	// ErrConnection is returned when the backing store is unreachable, a
	// statement timed out or the operation's context ended. Retryable.
	ErrConnection = errors.New("store unavailable")

	// ErrIntegrity is returned when an operation violates a uniqueness,
	// foreign-key or check constraint. Not retryable without new input.
	ErrIntegrity = errors.New("integrity violation")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrSerialization is returned when stored or supplied snapshot data
	// cannot be decoded.
	ErrSerialization = errors.New("malformed snapshot data")

	// ErrConflict is returned when a conditional update finds that the entity
	// changed since the caller read it.
	ErrConflict = errors.New("entity was modified concurrently")

	// ErrTransactionFailed is returned when a transaction fails to commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrDuplicate is returned when an insert or update would duplicate a
	// unique value.
	ErrDuplicate = fmt.Errorf("%w: entity already exists", ErrIntegrity)

	// ErrInvalidEntity is returned when an entity fails validation or refers
	// to a parent that does not exist.
	ErrInvalidEntity = fmt.Errorf("%w: invalid entity", ErrIntegrity)

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrListNotFound indicates that the grocery list does not exist or is
	// not owned by the requesting user. The two cases are deliberately
	// reported the same way.
	ErrListNotFound = fmt.Errorf("%w: grocery list", ErrNotFound)

	// ErrEmailExists indicates that another user already has the email.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsConnectionError checks if the error means the store could not be reached.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsRetryable reports whether repeating the same operation may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrConflict)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "user", "grocery_list")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
