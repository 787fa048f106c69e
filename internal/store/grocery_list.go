package store

import (
	"context"
	"database/sql"

	"github.com/joshuxchn/qloo/internal/domain"
)

// ListStore defines the interface for grocery list persistence. Items are
// only ever written as part of Create or Update; there is no per-item patch.
type ListStore interface {
	// Create saves the list metadata and every item in one transaction.
	// Item IDs and the list revision are populated on success.
	// Returns ErrInvalidEntity if the owning user does not exist.
	Create(ctx context.Context, list *domain.GroceryList, items []domain.GroceryListItem) error

	// GetByID retrieves a list with all of its items in insertion order.
	// Returns ErrListNotFound if the list does not exist.
	GetByID(ctx context.Context, listID string) (*domain.GroceryList, error)

	// GetAllForUser retrieves every list owned by the user, newest first,
	// each with its items. Returns an empty slice when the user has none.
	GetAllForUser(ctx context.Context, userID string) ([]*domain.GroceryList, error)

	// Update replaces the list's name, timestamp and entire item set, after
	// checking that requestingUserID owns it. The replace is atomic.
	// Returns ErrListNotFound if the list does not exist or is not owned by
	// requestingUserID.
	// Returns ErrConflict if list.Revision is set and no longer current.
	Update(ctx context.Context, list *domain.GroceryList, items []domain.GroceryListItem, requestingUserID string) error

	// Delete removes a list owned by requestingUserID; its items are removed
	// by cascade.
	// Returns ErrListNotFound if the list does not exist or is not owned by
	// requestingUserID.
	Delete(ctx context.Context, listID, requestingUserID string) error

	// WithTx returns a new ListStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ListStore
}
