package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joshuxchn/qloo/internal/config"
	"github.com/joshuxchn/qloo/internal/domain"
	"github.com/joshuxchn/qloo/internal/platform/logger"
	"github.com/joshuxchn/qloo/internal/redact"
	"github.com/joshuxchn/qloo/internal/store"
)

// AccountService provides signup, sign-in and profile operations.
type AccountService struct {
	users  store.UserStore
	hasher PasswordHasher
	cfg    config.AuthConfig
	logger *slog.Logger
	newID  func() string
}

// NewAccountService creates an AccountService. A nil hasher uses bcrypt at
// cfg.BcryptCost; a nil logger uses the default logger.
func NewAccountService(
	users store.UserStore,
	hasher PasswordHasher,
	cfg config.AuthConfig,
	logger *slog.Logger,
) *AccountService {
	if users == nil {
		panic("users cannot be nil")
	}
	if hasher == nil {
		hasher = NewBcryptHasher(cfg.BcryptCost)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		users:  users,
		hasher: hasher,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "account_service")),
		newID:  uuid.NewString,
	}
}

// SignUp creates an account for email with a hashed password. Signing up
// with an email that already has an account does not overwrite it: the
// stored account is returned if password matches it, and
// ErrInvalidCredentials otherwise.
func (s *AccountService) SignUp(ctx context.Context, email, password string) (*domain.User, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidCredentials)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.create(ctx, email, hash)
	if err != nil {
		return nil, err
	}
	if user.Password != hash {
		// Another signup for this email won; its password must match ours.
		if err := s.verify(user, password); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// GetOrCreateUser returns the account for email after checking password, or
// signs up a new account if none exists.
func (s *AccountService) GetOrCreateUser(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.verify(user, password); err != nil {
			log.Warn("sign-in rejected", slog.String("user_id", user.ID))
			return nil, err
		}
		log.Debug("existing user signed in", slog.String("user_id", user.ID))
		return user, nil
	case errors.Is(err, store.ErrUserNotFound):
		return s.SignUp(ctx, email, password)
	default:
		log.Error("failed to look up user",
			slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
}

// GetOrCreateExternalUser returns the account for email, creating one
// marked for external authentication if none exists. No password is checked.
func (s *AccountService) GetOrCreateExternalUser(ctx context.Context, email string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		log.Error("failed to look up user",
			slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return s.create(ctx, email, domain.ExternalAuthPassword)
}

// UpdateProfile saves the profile and preference fields of user.
func (s *AccountService) UpdateProfile(ctx context.Context, user *domain.User) error {
	if err := s.users.Update(ctx, user); err != nil {
		s.logFailure(ctx, "failed to update profile", user, err)
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// StoreTokens saves the retail API tokens for a user. Nil clears them.
func (s *AccountService) StoreTokens(ctx context.Context, userID string, tokens *domain.OAuthTokens) error {
	if err := s.users.UpdateTokens(ctx, userID, tokens); err != nil {
		s.logFailure(ctx, "failed to store tokens", &domain.User{ID: userID}, err)
		return fmt.Errorf("failed to store tokens: %w", err)
	}
	return nil
}

// DeleteAccount removes a user together with all of their lists.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		s.logFailure(ctx, "failed to delete account", &domain.User{ID: userID}, err)
		return fmt.Errorf("failed to delete account: %w", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("account deleted", slog.String("user_id", userID))
	return nil
}

// create inserts a new account and returns the stored row, which belongs to
// an earlier signup if the email was already taken.
func (s *AccountService) create(ctx context.Context, email, storedPassword string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user := &domain.User{
		ID:                s.newID(),
		Username:          domain.UsernameFromEmail(email),
		Email:             domain.NormalizeEmail(email),
		Password:          storedPassword,
		PreferredLocation: s.cfg.DefaultLocation,
	}
	if err := s.users.Create(ctx, user); err != nil {
		log.Error("failed to create user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", user.ID))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	stored, err := s.users.GetByEmail(ctx, user.Email)
	if err != nil {
		log.Error("failed to read back user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", user.ID))
		return nil, fmt.Errorf("failed to read back user: %w", err)
	}

	if stored.ID == user.ID {
		log.Info("user signed up", slog.String("user_id", stored.ID))
	} else {
		log.Info("signup matched existing user", slog.String("user_id", stored.ID))
	}
	return stored, nil
}

func (s *AccountService) verify(user *domain.User, password string) error {
	if user.IsExternalAuth() {
		return fmt.Errorf("%w: account uses external sign-in", ErrInvalidCredentials)
	}
	if err := s.hasher.Compare(user.Password, password); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *AccountService) logFailure(ctx context.Context, msg string, user *domain.User, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	id := ""
	if user != nil {
		id = user.ID
	}
	if store.IsNotFoundError(err) {
		log.Debug(msg, slog.String("user_id", id), slog.String("error", err.Error()))
		return
	}
	log.Error(msg, slog.String("user_id", id), slog.String("error", redact.Error(err)))
}
