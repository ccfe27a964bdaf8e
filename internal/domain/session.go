package domain

import (
	"context"
	"time"
)

// Session is an authenticated session. It is created on sign-in, travels with
// each request through the context, and ends on sign-out or expiry.
type Session struct {
	ID        string    `json:"session_id"`
	Token     string    `json:"access_token"`
	User      *User     `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Auth events published on a user's change topic.
const (
	AuthEventSignedIn         = "signed_in"
	AuthEventSignedOut        = "signed_out"
	AuthEventPasswordRecovery = "password_recovery"
	AuthEventPasswordUpdated  = "password_updated"
)

// SessionStore keeps live sessions and one-time password reset codes.
type SessionStore interface {
	Save(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) error
	SaveResetCode(ctx context.Context, email, codeHash string, ttl time.Duration) error
	// ConsumeResetCode deletes and reports whether codeHash matched the stored code.
	ConsumeResetCode(ctx context.Context, email, codeHash string) (bool, error)
}

// SignUpInput is the data needed to register a user.
type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     string
}

// AuthService is the identity provider: registration, sessions and password recovery.
type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*User, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, session *Session) error
	VerifySession(ctx context.Context, token string) (*Session, error)
	ResetPassword(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error
}

// UserService covers user lookups and self-service profile edits.
type UserService interface {
	GetByID(ctx context.Context, id string) (*User, error)
	ListCollectors(ctx context.Context, search string) ([]*User, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*User, error)
}
