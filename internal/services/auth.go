package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"guestlist/internal/domain"
)

const (
	minPasswordLen     = 8
	resetCodeDigits    = 6
	resetCodeExpiryMin = 15
)

var (
	emailRegexp     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	resetCodeRegexp = regexp.MustCompile(`^\d{6}$`)
)

type authService struct {
	userRepo       domain.UserRepository
	hasher         domain.PasswordHasher
	issuer         domain.TokenIssuer
	verifier       domain.TokenVerifier
	sessions       domain.SessionStore
	emailService   domain.EmailService
	feed           domain.ChangeFeed
	logger         *slog.Logger
	tokenExpiry    time.Duration
	contextTimeout time.Duration
	now            func() time.Time
}

// NewAuthService creates the identity provider. emailService and feed may be nil.
func NewAuthService(
	userRepo domain.UserRepository,
	hasher domain.PasswordHasher,
	issuer domain.TokenIssuer,
	verifier domain.TokenVerifier,
	sessions domain.SessionStore,
	emailService domain.EmailService,
	feed domain.ChangeFeed,
	logger *slog.Logger,
	tokenExpiry, timeout time.Duration,
) domain.AuthService {
	return &authService{
		userRepo:       userRepo,
		hasher:         hasher,
		issuer:         issuer,
		verifier:       verifier,
		sessions:       sessions,
		emailService:   emailService,
		feed:           feed,
		logger:         logger,
		tokenExpiry:    tokenExpiry,
		contextTimeout: timeout,
		now:            utcNow,
	}
}

func (s *authService) SignUp(ctx context.Context, in domain.SignUpInput) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email := normalizeEmail(in.Email)
	if !emailRegexp.MatchString(email) {
		return nil, domain.NewValidationError("email", "invalid email format")
	}
	if len(in.Password) < minPasswordLen {
		return nil, domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	role := strings.TrimSpace(strings.ToLower(in.Role))
	switch role {
	case "":
		role = domain.RolePromoter
	case domain.RoleAdmin:
		return nil, domain.NewValidationError("role", "admin cannot be self-assigned")
	case domain.RolePromoter, domain.RoleCollector:
	default:
		return nil, domain.NewValidationError("role", "must be pr or collector")
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(salt, in.Password)
	if err != nil {
		return nil, err
	}

	profile := domain.UserProfile{FullName: strings.TrimSpace(in.FullName), Phone: strings.TrimSpace(in.Phone)}
	user := domain.NewUser(email, role, profile, s.now())
	user.ID = uuid.NewString()
	user.PasswordHash = hash
	user.Salt = salt
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	sessionID := uuid.NewString()
	token, err := s.issuer.Issue(sessionID, user.ID, user.Email, user.Role, s.tokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	if err := s.sessions.Save(ctx, sessionID, user.ID, s.tokenExpiry); err != nil {
		return nil, domain.WrapBackend("save session", err)
	}

	user.Metadata.LastLogin = &now
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn("record last login failed", "user_id", user.ID, "error", err)
	}
	s.publishAuth(ctx, user.ID, domain.AuthEventSignedIn)

	return &domain.Session{
		ID:        sessionID,
		Token:     token,
		User:      user,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.tokenExpiry),
	}, nil
}

func (s *authService) SignOut(ctx context.Context, session *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if session == nil || session.ID == "" {
		return domain.ErrUnauthorized
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return domain.WrapBackend("delete session", err)
	}
	if session.User != nil {
		s.publishAuth(ctx, session.User.ID, domain.AuthEventSignedOut)
	}
	return nil
}

// VerifySession checks the token signature, that the session was not signed out
// and that the user is still active.
func (s *authService) VerifySession(ctx context.Context, token string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	live, err := s.sessions.Exists(ctx, claims.SessionID)
	if err != nil {
		return nil, domain.WrapBackend("check session", err)
	}
	if !live {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrUnauthorized
	}
	return &domain.Session{
		ID:        claims.SessionID,
		Token:     token,
		User:      user,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// ResetPassword emails a one-time code. Unknown emails succeed silently so the
// endpoint cannot be used to discover accounts.
func (s *authService) ResetPassword(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = normalizeEmail(email)
	if !emailRegexp.MatchString(email) {
		return domain.NewValidationError("email", "invalid email format")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	code, err := generateResetCode(resetCodeDigits)
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	if err := s.sessions.SaveResetCode(ctx, email, hashResetCode(code), resetCodeExpiryMin*time.Minute); err != nil {
		return domain.WrapBackend("store reset code", err)
	}
	if s.emailService != nil {
		data := &domain.PasswordResetEmailData{
			Email:            email,
			Code:             code,
			ExpiresInMinutes: resetCodeExpiryMin,
		}
		if err := s.emailService.SendPasswordReset(ctx, data); err != nil {
			return fmt.Errorf("failed to send reset email: %w", err)
		}
	}
	s.publishAuth(ctx, user.ID, domain.AuthEventPasswordRecovery)
	return nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if !resetCodeRegexp.MatchString(code) {
		return domain.NewValidationError("code", "invalid or expired code")
	}
	if len(newPassword) < minPasswordLen {
		return domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	ok, err := s.sessions.ConsumeResetCode(ctx, email, hashResetCode(code))
	if err != nil {
		return domain.WrapBackend("consume reset code", err)
	}
	if !ok {
		return domain.NewValidationError("code", "invalid or expired code")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("code", "invalid or expired code")
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(salt, newPassword)
	if err != nil {
		return err
	}
	user.Salt = salt
	user.PasswordHash = hash
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.publishAuth(ctx, user.ID, domain.AuthEventPasswordUpdated)
	return nil
}

func (s *authService) publishAuth(ctx context.Context, userID, event string) {
	if s.feed == nil {
		return
	}
	topic := domain.UserTopic(userID)
	change := domain.Change{Topic: topic, Kind: domain.ChangeAuth, EntityID: event, At: s.now()}
	if err := s.feed.Publish(ctx, topic, change); err != nil {
		s.logger.Warn("publish auth event failed", "user_id", userID, "event", event, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func generateResetCode(digits int) (string, error) {
	const digitspace = "0123456789"
	b := make([]byte, digits)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = digitspace[int(b[i])%len(digitspace)]
	}
	return string(b), nil
}

func hashResetCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
