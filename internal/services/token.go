package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strings"
)

const tokenHalfLength = 11

var tokenAlphabet = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

// NewToken returns a 22 character collector token made of two independently
// drawn base-36 halves. The result is URL safe.
func NewToken() (string, error) {
	first, err := randomBase36(tokenHalfLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	second, err := randomBase36(tokenHalfLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return first + second, nil
}

func randomBase36(n int) (string, error) {
	b := make([]rune, n)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tokenAlphabet[v.Int64()]
	}
	return string(b), nil
}

// InvitationLink builds <baseURL>/collect/<token>?event=<eventID>&collector=<collectorID>.
// The same inputs always produce the same link.
func InvitationLink(baseURL, token, eventID, collectorID string) string {
	return fmt.Sprintf("%s/collect/%s?event=%s&collector=%s",
		strings.TrimSuffix(baseURL, "/"),
		url.PathEscape(token),
		url.QueryEscape(eventID),
		url.QueryEscape(collectorID),
	)
}
