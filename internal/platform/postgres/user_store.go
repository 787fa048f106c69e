package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joshuxchn/qloo/internal/domain"
	"github.com/joshuxchn/qloo/internal/platform/logger"
	"github.com/joshuxchn/qloo/internal/redact"
	"github.com/joshuxchn/qloo/internal/snapshot"
	"github.com/joshuxchn/qloo/internal/store"
)

const userColumns = `user_id, username, email, password,
		access_token, refresh_token, token_type, token_expiry,
		first_name, last_name, preferred_location, age, gender,
		budget, shopping_frequency, shopping_priority,
		dietary_restrictions, allergies, favorite_cuisines,
		health_goals, cultural_background, favorite_foods,
		created_at, updated_at`

// userRow is the row form of a user, scanned with sqlx.
type userRow struct {
	ID                  string         `db:"user_id"`
	Username            string         `db:"username"`
	Email               string         `db:"email"`
	Password            string         `db:"password"`
	AccessToken         sql.NullString `db:"access_token"`
	RefreshToken        sql.NullString `db:"refresh_token"`
	TokenType           sql.NullString `db:"token_type"`
	TokenExpiry         sql.NullTime   `db:"token_expiry"`
	FirstName           sql.NullString `db:"first_name"`
	LastName            sql.NullString `db:"last_name"`
	PreferredLocation   sql.NullString `db:"preferred_location"`
	Age                 sql.NullInt64  `db:"age"`
	Gender              sql.NullString `db:"gender"`
	Budget              sql.NullInt64  `db:"budget"`
	ShoppingFrequency   sql.NullString `db:"shopping_frequency"`
	ShoppingPriority    sql.NullString `db:"shopping_priority"`
	DietaryRestrictions []byte         `db:"dietary_restrictions"`
	Allergies           []byte         `db:"allergies"`
	FavoriteCuisines    []byte         `db:"favorite_cuisines"`
	HealthGoals         sql.NullString `db:"health_goals"`
	CulturalBackground  sql.NullString `db:"cultural_background"`
	FavoriteFoods       sql.NullString `db:"favorite_foods"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.UserStore.Create
// The insert is ON CONFLICT (email) DO NOTHING: an existing account with the
// same email is left untouched and the call succeeds.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if user != nil {
		user.Email = domain.NormalizeEmail(user.Email)
	}
	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	tags, err := encodeUserTags(user)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (email) DO NOTHING
	`
	access, refresh, tokenType, expiry := tokenArgs(user.Tokens)
	result, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.Password,
		access,
		refresh,
		tokenType,
		expiry,
		nullString(user.FirstName),
		nullString(user.LastName),
		nullString(user.PreferredLocation),
		nullInt(user.Age),
		nullString(user.Gender),
		nullInt(user.Budget),
		nullString(user.ShoppingFrequency),
		nullString(user.ShoppingPriority),
		tags[0],
		tags[1],
		tags[2],
		nullString(user.HealthGoals),
		nullString(user.CulturalBackground),
		nullString(user.FavoriteFoods),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		err = MapError(err)
		log.Error("failed to create user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", user.ID))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rowsAffected == 0 {
		log.Info("user with this email already exists, signup left existing row unchanged",
			slog.String("user_id", user.ID))
		return nil
	}

	log.Info("user created successfully", slog.String("user_id", user.ID))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Debug("retrieving user by ID", slog.String("user_id", id))

	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return s.getOne(ctx, log, query, id)
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Debug("retrieving user by email")

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.getOne(ctx, log, query, domain.NormalizeEmail(email))
}

func (s *PostgresUserStore) getOne(ctx context.Context, log *slog.Logger, query string, arg string) (*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		err = MapError(err)
		log.Error("failed to query user", slog.String("error", redact.Error(err)))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var found []userRow
	if err := sqlx.StructScan(rows, &found); err != nil {
		err = MapError(err)
		log.Error("failed to scan user row", slog.String("error", redact.Error(err)))
		return nil, err
	}

	if len(found) == 0 {
		log.Debug("user not found")
		return nil, store.ErrUserNotFound
	}

	user, err := found[0].toDomain()
	if err != nil {
		log.Error("stored user could not be decoded",
			slog.String("user_id", found[0].ID),
			slog.String("error", err.Error()))
		return nil, err
	}
	return user, nil
}

// Update implements store.UserStore.Update
// Password and tokens are not written; see UpdateTokens.
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if user != nil {
		user.Email = domain.NormalizeEmail(user.Email)
	}
	if err := user.ValidateProfile(); err != nil {
		log.Warn("user validation failed during update",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	tags, err := encodeUserTags(user)
	if err != nil {
		return err
	}

	updatedAt := time.Now().UTC().Truncate(time.Microsecond)

	query := `
		UPDATE users
		SET username = $2, email = $3,
			first_name = $4, last_name = $5, preferred_location = $6,
			age = $7, gender = $8, budget = $9,
			shopping_frequency = $10, shopping_priority = $11,
			dietary_restrictions = $12, allergies = $13, favorite_cuisines = $14,
			health_goals = $15, cultural_background = $16, favorite_foods = $17,
			updated_at = $18
		WHERE user_id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		nullString(user.FirstName),
		nullString(user.LastName),
		nullString(user.PreferredLocation),
		nullInt(user.Age),
		nullString(user.Gender),
		nullInt(user.Budget),
		nullString(user.ShoppingFrequency),
		nullString(user.ShoppingPriority),
		tags[0],
		tags[1],
		tags[2],
		nullString(user.HealthGoals),
		nullString(user.CulturalBackground),
		nullString(user.FavoriteFoods),
		updatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("email already taken during user update",
				slog.String("user_id", user.ID),
				slog.String("constraint", constraintName(err)))
			return fmt.Errorf("%w: %w", store.ErrEmailExists, err)
		}
		err = MapError(err)
		log.Error("failed to update user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", user.ID))
		return err
	}

	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		log.Debug("user not found for update", slog.String("user_id", user.ID))
		return err
	}

	user.UpdatedAt = updatedAt
	log.Info("user updated successfully", slog.String("user_id", user.ID))
	return nil
}

// UpdateTokens implements store.UserStore.UpdateTokens
func (s *PostgresUserStore) UpdateTokens(ctx context.Context, id string, tokens *domain.OAuthTokens) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE users
		SET access_token = $2, refresh_token = $3, token_type = $4, token_expiry = $5,
			updated_at = $6
		WHERE user_id = $1
	`
	access, refresh, tokenType, expiry := tokenArgs(tokens)
	result, err := s.db.ExecContext(ctx, query,
		id, access, refresh, tokenType, expiry, time.Now().UTC())
	if err != nil {
		err = MapError(err)
		log.Error("failed to update user tokens",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", id))
		return err
	}

	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		log.Debug("user not found for token update", slog.String("user_id", id))
		return err
	}

	log.Info("user tokens updated",
		slog.String("user_id", id),
		slog.Bool("cleared", tokens == nil))
	return nil
}

// Delete implements store.UserStore.Delete
// Lists and items are removed by the ON DELETE CASCADE foreign keys.
func (s *PostgresUserStore) Delete(ctx context.Context, id string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		err = MapError(err)
		log.Error("failed to delete user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", id))
		return err
	}

	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		log.Debug("user not found for delete", slog.String("user_id", id))
		return err
	}

	log.Info("user deleted successfully", slog.String("user_id", id))
	return nil
}

func (r userRow) toDomain() (*domain.User, error) {
	user := &domain.User{
		ID:                 r.ID,
		Username:           r.Username,
		Email:              r.Email,
		Password:           r.Password,
		FirstName:          r.FirstName.String,
		LastName:           r.LastName.String,
		PreferredLocation:  r.PreferredLocation.String,
		Gender:             r.Gender.String,
		ShoppingFrequency:  r.ShoppingFrequency.String,
		ShoppingPriority:   r.ShoppingPriority.String,
		HealthGoals:        r.HealthGoals.String,
		CulturalBackground: r.CulturalBackground.String,
		FavoriteFoods:      r.FavoriteFoods.String,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
	if r.Age.Valid {
		age := int(r.Age.Int64)
		user.Age = &age
	}
	if r.Budget.Valid {
		budget := int(r.Budget.Int64)
		user.Budget = &budget
	}
	if r.AccessToken.Valid || r.RefreshToken.Valid {
		user.Tokens = &domain.OAuthTokens{
			AccessToken:  r.AccessToken.String,
			RefreshToken: r.RefreshToken.String,
			TokenType:    r.TokenType.String,
		}
		if r.TokenExpiry.Valid {
			user.Tokens.Expiry = r.TokenExpiry.Time.UTC()
		}
	}

	var err error
	columns := []struct {
		name string
		data []byte
		dst  *domain.TagSet
	}{
		{"dietary_restrictions", r.DietaryRestrictions, &user.DietaryRestrictions},
		{"allergies", r.Allergies, &user.Allergies},
		{"favorite_cuisines", r.FavoriteCuisines, &user.FavoriteCuisines},
	}
	for _, c := range columns {
		if *c.dst, err = snapshot.DecodeTagSet(c.data); err != nil {
			return nil, store.NewStoreError("user", "decode", c.name, err)
		}
	}
	return user, nil
}

// encodeUserTags returns the three tag documents in column order.
func encodeUserTags(user *domain.User) ([3]string, error) {
	var docs [3]string
	sets := [3]domain.TagSet{user.DietaryRestrictions, user.Allergies, user.FavoriteCuisines}
	for i, set := range sets {
		doc, err := snapshot.EncodeTagSet(set)
		if err != nil {
			return docs, err
		}
		docs[i] = doc
	}
	return docs, nil
}

func tokenArgs(tokens *domain.OAuthTokens) (sql.NullString, sql.NullString, sql.NullString, sql.NullTime) {
	if tokens == nil {
		return sql.NullString{}, sql.NullString{}, sql.NullString{}, sql.NullTime{}
	}
	return nullString(tokens.AccessToken),
		nullString(tokens.RefreshToken),
		nullString(tokens.TokenType),
		sql.NullTime{Time: tokens.Expiry.UTC(), Valid: !tokens.Expiry.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// isNoRows reports a missing row from QueryRow.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
