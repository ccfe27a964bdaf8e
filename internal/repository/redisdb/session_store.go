package redisdb

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"guestlist/internal/domain"
)

const (
	sessionKeyPrefix = "guestlist:session:"
	resetKeyPrefix   = "guestlist:reset:"
)

// consumeScript deletes KEYS[1] only when it holds ARGV[1], so a reset code is
// checked and spent in one step.
const consumeScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

type sessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) domain.SessionStore {
	return &sessionStore{client: client}
}

func (s *sessionStore) Save(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKeyPrefix+sessionID, userID, ttl).Err(); err != nil {
		return domain.WrapBackend("save session", err)
	}
	return nil
}

func (s *sessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return false, domain.WrapBackend("check session", err)
	}
	return n == 1, nil
}

func (s *sessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return domain.WrapBackend("delete session", err)
	}
	return nil
}

// SaveResetCode replaces any earlier code for email.
func (s *sessionStore) SaveResetCode(ctx context.Context, email, codeHash string, ttl time.Duration) error {
	if err := s.client.Set(ctx, resetKeyPrefix+email, codeHash, ttl).Err(); err != nil {
		return domain.WrapBackend("save reset code", err)
	}
	return nil
}

func (s *sessionStore) ConsumeResetCode(ctx context.Context, email, codeHash string) (bool, error) {
	n, err := s.client.Eval(ctx, consumeScript, []string{resetKeyPrefix + email}, codeHash).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, domain.WrapBackend("consume reset code", err)
	}
	return n == 1, nil
}
