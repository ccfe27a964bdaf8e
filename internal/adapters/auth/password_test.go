package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"guestlist/internal/domain"
)

func TestBcryptHasher_GenerateSalt(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	first, err := h.GenerateSalt()
	require.NoError(t, err)
	second, err := h.GenerateSalt()
	require.NoError(t, err)

	assert.Regexp(t, `^[0-9a-f]{64}$`, first)
	assert.NotEqual(t, first, second)
}

func TestBcryptHasher_Compare(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	salt, err := h.GenerateSalt()
	require.NoError(t, err)
	otherSalt, err := h.GenerateSalt()
	require.NoError(t, err)
	long := strings.Repeat("x", 100)

	hash, err := h.Hash(salt, "correct horse")
	require.NoError(t, err)
	longHash, err := h.Hash(salt, long)
	require.NoError(t, err)

	tests := []struct {
		name     string
		hash     string
		salt     string
		password string
		wantErr  error
	}{
		{name: "match", hash: hash, salt: salt, password: "correct horse"},
		{name: "passwords past 72 bytes still match", hash: longHash, salt: salt, password: long},
		{name: "wrong password", hash: hash, salt: salt, password: "battery staple", wantErr: domain.ErrInvalidCredentials},
		{name: "wrong salt", hash: hash, salt: otherSalt, password: "correct horse", wantErr: domain.ErrInvalidCredentials},
		{name: "long password differing at the end", hash: longHash, salt: salt, password: long[:99] + "y", wantErr: domain.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Compare(tt.hash, tt.salt, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	h := NewBcryptHasher(99).(*bcryptHasher)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}
