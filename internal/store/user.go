package store

import (
	"context"
	"database/sql"

	"github.com/joshuxchn/qloo/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user.
	// If a user with the same email already exists the call succeeds without
	// writing anything: signup is idempotent and never overwrites.
	// Returns ErrDuplicate if the user ID is taken by a different email.
	// Returns validation errors from the domain User if data is invalid.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update replaces the mutable profile and preference fields of an
	// existing user. Password and tokens are not touched.
	// Returns ErrUserNotFound if the user does not exist; never creates.
	// Returns ErrEmailExists if updating to an email that already exists.
	Update(ctx context.Context, user *domain.User) error

	// UpdateTokens stores the retail API token triple for a user. A nil
	// tokens value clears them.
	// Returns ErrUserNotFound if the user does not exist.
	UpdateTokens(ctx context.Context, id string, tokens *domain.OAuthTokens) error

	// Delete removes a user and, through ON DELETE CASCADE, every list and
	// item the user owns.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id string) error

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
