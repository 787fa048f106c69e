package service

import "errors"

// Common service errors, checked with errors.Is. Repository errors such as
// store.ErrListNotFound and store.ErrConflict pass through wrapped.
var (
	// ErrInvalidCredentials indicates the password did not match the account,
	// or the account has no local password because it signs in externally.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrItemNotFound indicates no item on the list has the requested UPC.
	ErrItemNotFound = errors.New("item not found on list")
)
