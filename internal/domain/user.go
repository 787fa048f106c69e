package domain

import (
	"strings"
	"time"
)

// ExternalAuthPassword is stored in place of a credential for accounts that
// authenticate through an external identity provider.
const ExternalAuthPassword = "google_auth"

// OAuthTokens is the token triple issued by the retail API for a user.
type OAuthTokens struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

// User is an account together with its shopping profile.
type User struct {
	ID       string `json:"user_id"  validate:"required,max=128"`
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	// Password is opaque to the store: a bcrypt hash or ExternalAuthPassword.
	Password string       `json:"-" validate:"required"`
	Tokens   *OAuthTokens `json:"-" validate:"-"`

	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	PreferredLocation string `json:"preferred_location,omitempty"`
	Age               *int   `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
	Gender            string `json:"gender,omitempty"`

	Budget            *int   `json:"budget,omitempty" validate:"omitempty,gte=0,lte=2147483647"`
	ShoppingFrequency string `json:"shopping_frequency,omitempty"`
	ShoppingPriority  string `json:"shopping_priority,omitempty"`

	DietaryRestrictions TagSet `json:"dietary_restrictions" validate:"-"`
	Allergies           TagSet `json:"allergies"            validate:"-"`
	FavoriteCuisines    TagSet `json:"favorite_cuisines"    validate:"-"`

	HealthGoals        string `json:"health_goals,omitempty"`
	CulturalBackground string `json:"cultural_background,omitempty"`
	FavoriteFoods      string `json:"favorite_foods,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// constraint agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameFromEmail derives a default username from the local part of email.
func UsernameFromEmail(email string) string {
	local, _, found := strings.Cut(NormalizeEmail(email), "@")
	if !found || local == "" {
		return NormalizeEmail(email)
	}
	return local
}

// Validate checks the user's fields.
func (u *User) Validate() error {
	if u == nil {
		return NewValidationError("user", "is required", ErrValidation)
	}
	return validateStruct(u)
}

// IsExternalAuth reports whether the account has no local credential.
func (u *User) IsExternalAuth() bool {
	return u.Password == ExternalAuthPassword
}

// ValidateProfile checks the fields a profile update may change. The
// credential is not part of the profile and is not required.
func (u *User) ValidateProfile() error {
	if u == nil {
		return NewValidationError("user", "is required", ErrValidation)
	}
	profile := *u
	if profile.Password == "" {
		profile.Password = ExternalAuthPassword
	}
	return validateStruct(&profile)
}
