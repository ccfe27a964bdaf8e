package domain

import (
	"context"
	"strings"
	"time"
)

// User roles.
const (
	RoleAdmin     = "admin"
	RolePromoter  = "pr"
	RoleCollector = "collector"
)

// User is a users_doc document.
// swagger:model User
type User struct {
	ID           string          `json:"user_id"`
	Email        string          `json:"email"`
	Role         string          `json:"role"`
	Profile      UserProfile     `json:"profile"`
	IsActive     bool            `json:"is_active"`
	Preferences  UserPreferences `json:"preferences"`
	Metadata     UserMetadata    `json:"metadata"`
	PasswordHash string          `json:"-"`
	Salt         string          `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// UserProfile holds display and contact details.
type UserProfile struct {
	FullName  string `json:"full_name"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// UserPreferences holds notification channel preferences.
type UserPreferences struct {
	NotificationEmail bool `json:"notification_email"`
	NotificationSMS   bool `json:"notification_sms"`
}

// UserMetadata holds usage counters. The event service maintains the totals
// for the organizing promoter on a best-effort basis.
type UserMetadata struct {
	LastLogin          *time.Time `json:"last_login,omitempty"`
	TotalEventsCreated int        `json:"total_events_created"`
	TotalGuestsManaged int        `json:"total_guests_managed"`
}

// ProfileInput is a partial update of a user's profile and preferences.
// Nil fields are left unchanged.
type ProfileInput struct {
	FullName          *string
	Phone             *string
	AvatarURL         *string
	NotificationEmail *bool
	NotificationSMS   *bool
}

// Apply copies the set fields onto u.
func (in ProfileInput) Apply(u *User) error {
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return NewValidationError("full_name", "cannot be empty")
		}
		u.Profile.FullName = name
	}
	if in.Phone != nil {
		u.Profile.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.AvatarURL != nil {
		u.Profile.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if in.NotificationEmail != nil {
		u.Preferences.NotificationEmail = *in.NotificationEmail
	}
	if in.NotificationSMS != nil {
		u.Preferences.NotificationSMS = *in.NotificationSMS
	}
	return nil
}

// NewUser returns an active user with default preferences. ID is set by the caller.
func NewUser(email, role string, profile UserProfile, createdAt time.Time) *User {
	return &User{
		Email:       email,
		Role:        role,
		Profile:     profile,
		IsActive:    true,
		Preferences: UserPreferences{NotificationEmail: true},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// Validate checks the document before it crosses the store boundary.
func (u *User) Validate() error {
	if u.ID == "" {
		return NewValidationError("user_id", "is required")
	}
	if u.Email == "" {
		return NewValidationError("email", "is required")
	}
	if !IsValidRole(u.Role) {
		return NewValidationError("role", "must be admin, pr or collector")
	}
	return nil
}

// IsValidRole reports whether role is a known role code.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RolePromoter, RoleCollector:
		return true
	}
	return false
}

// CanManageEvents reports whether the user may create events and assign collectors.
func (u *User) CanManageEvents() bool {
	return u.Role == RoleAdmin || u.Role == RolePromoter
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(sessionID, userID, email, role string, expiry time.Duration) (string, error)
}

// TokenClaims are the verified contents of a session token.
type TokenClaims struct {
	SessionID string
	UserID    string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// TokenVerifier verifies a token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// UserRepository is the document store for users_doc.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	// ListByRole returns users with role whose name or email contains search.
	ListByRole(ctx context.Context, role, search string) ([]*User, error)
}
