package services

import (
	"context"
	"testing"
	"time"

	"guestlist/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc      domain.AuthService
	users    *fakeUserRepo
	sessions *fakeSessionStore
	tokens   *fakeTokens
	emails   *fakeEmailService
	feed     *fakeFeed
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:    newFakeUserRepo(),
		sessions: newFakeSessionStore(),
		tokens:   newFakeTokens(),
		emails:   &fakeEmailService{},
		feed:     &fakeFeed{},
	}
	f.svc = NewAuthService(f.users, fakeHasher{}, f.tokens, f.tokens, f.sessions, f.emails, f.feed, discardLogger(), time.Hour, time.Second)
	return f
}

func (f *authFixture) signUp(t *testing.T, email, role string) *domain.User {
	t.Helper()
	u, err := f.svc.SignUp(context.Background(), domain.SignUpInput{Email: email, Password: "password1", FullName: "Test User", Role: role})
	require.NoError(t, err)
	return u
}

func TestAuthService_SignUp(t *testing.T) {
	tests := []struct {
		name     string
		in       domain.SignUpInput
		wantRole string
		errIs    error
	}{
		{name: "defaults to promoter", in: domain.SignUpInput{Email: "Ada@Example.com", Password: "password1"}, wantRole: domain.RolePromoter},
		{name: "collector", in: domain.SignUpInput{Email: "c@example.com", Password: "password1", Role: "Collector"}, wantRole: domain.RoleCollector},
		{name: "bad email", in: domain.SignUpInput{Email: "nope", Password: "password1"}, errIs: domain.ErrValidation},
		{name: "short password", in: domain.SignUpInput{Email: "a@example.com", Password: "short"}, errIs: domain.ErrValidation},
		{name: "admin cannot self-assign", in: domain.SignUpInput{Email: "a@example.com", Password: "password1", Role: "admin"}, errIs: domain.ErrValidation},
		{name: "unknown role", in: domain.SignUpInput{Email: "a@example.com", Password: "password1", Role: "dj"}, errIs: domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			u, err := f.svc.SignUp(context.Background(), tt.in)
			if tt.errIs != nil {
				require.ErrorIs(t, err, tt.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, u.Role)
			assert.Equal(t, normalizeEmail(tt.in.Email), u.Email)
			assert.True(t, u.IsActive)
			assert.NotEmpty(t, u.ID)
			assert.Equal(t, "salt:password1", u.PasswordHash)
		})
	}

	t.Run("duplicate email", func(t *testing.T) {
		f := newAuthFixture()
		f.signUp(t, "ada@example.com", "")
		_, err := f.svc.SignUp(context.Background(), domain.SignUpInput{Email: "ADA@example.com", Password: "password1"})
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})
}

func TestAuthService_SignInVerifySignOut(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	u := f.signUp(t, "ada@example.com", "")

	session, err := f.svc.SignIn(ctx, " ADA@example.com ", "password1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, session.User.ID)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, time.Hour, session.ExpiresAt.Sub(session.IssuedAt))
	assert.NotNil(t, session.User.Metadata.LastLogin)
	assert.Equal(t, []string{domain.ChangeAuth}, f.feed.kinds(domain.UserTopic(u.ID)))

	verified, err := f.svc.VerifySession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, verified.ID)
	assert.Equal(t, u.ID, verified.User.ID)

	require.NoError(t, f.svc.SignOut(ctx, verified))
	_, err = f.svc.VerifySession(ctx, session.Token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_SignInFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong password", func(t *testing.T) {
		f := newAuthFixture()
		f.signUp(t, "ada@example.com", "")
		_, err := f.svc.SignIn(ctx, "ada@example.com", "wrong-password")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.svc.SignIn(ctx, "ghost@example.com", "password1")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		f := newAuthFixture()
		u := f.signUp(t, "ada@example.com", "")
		u.IsActive = false
		require.NoError(t, f.users.Update(ctx, u))
		_, err := f.svc.SignIn(ctx, "ada@example.com", "password1")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestAuthService_VerifySession(t *testing.T) {
	ctx := context.Background()

	t.Run("garbage token", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.svc.VerifySession(ctx, "garbage")
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("deactivated after sign in", func(t *testing.T) {
		f := newAuthFixture()
		f.signUp(t, "ada@example.com", "")
		session, err := f.svc.SignIn(ctx, "ada@example.com", "password1")
		require.NoError(t, err)

		u, err := f.users.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		u.IsActive = false
		require.NoError(t, f.users.Update(ctx, u))

		_, err = f.svc.VerifySession(ctx, session.Token)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestAuthService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	u := f.signUp(t, "ada@example.com", "")

	require.NoError(t, f.svc.ResetPassword(ctx, "ghost@example.com"))
	assert.Empty(t, f.emails.resets)

	require.NoError(t, f.svc.ResetPassword(ctx, "Ada@example.com"))
	require.Len(t, f.emails.resets, 1)
	code := f.emails.resets[0].Code
	assert.Regexp(t, `^\d{6}$`, code)
	assert.Equal(t, 15, f.emails.resets[0].ExpiresInMinutes)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err := f.svc.ConfirmPasswordReset(ctx, "ada@example.com", wrong, "new-password")
	require.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, "ada@example.com", code, "new-password"))
	err = f.svc.ConfirmPasswordReset(ctx, "ada@example.com", code, "new-password")
	require.ErrorIs(t, err, domain.ErrValidation, "codes are single use")

	_, err = f.svc.SignIn(ctx, "ada@example.com", "password1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.svc.SignIn(ctx, "ada@example.com", "new-password")
	require.NoError(t, err)

	kinds := f.feed.kinds(domain.UserTopic(u.ID))
	assert.Len(t, kinds, 3)
}
