package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tradegate/internal/token"
	"tradegate/pkg/platform/sentinel"
)

const codeKeyPrefix = "onboarding:code:"

// RedisCodeStore holds pending registrations under a TTL key per email. SET
// without NX means a reissue overwrites the prior code, which is exactly the
// at-most-one-live-code contract.
type RedisCodeStore struct {
	client *redis.Client
}

func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func (s *RedisCodeStore) Put(ctx context.Context, reg token.PendingRegistration, ttl time.Duration) error {
	payload, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal pending registration: %w", err)
	}
	if err := s.client.Set(ctx, codeKeyPrefix+reg.Email, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store pending registration: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) Get(ctx context.Context, email string) (token.PendingRegistration, error) {
	payload, err := s.client.Get(ctx, codeKeyPrefix+email).Bytes()
	if err != nil {
		if err == redis.Nil {
			return token.PendingRegistration{}, sentinel.ErrNotFound
		}
		return token.PendingRegistration{}, fmt.Errorf("read pending registration: %w", err)
	}

	var reg token.PendingRegistration
	if err := json.Unmarshal(payload, &reg); err != nil {
		return token.PendingRegistration{}, fmt.Errorf("unmarshal pending registration: %w", err)
	}
	return reg, nil
}

func (s *RedisCodeStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, codeKeyPrefix+email).Err(); err != nil {
		return fmt.Errorf("delete pending registration: %w", err)
	}
	return nil
}
