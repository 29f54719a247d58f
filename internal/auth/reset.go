package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetCode is transient keyed state for one password reset. Expiry is
// checked lazily on every read; no background sweep exists.
type ResetCode struct {
	Code      string    `json:"code"`
	Role      string    `json:"role"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CodeStore is the abstraction over reset-code backends.
type CodeStore interface {
	Put(ctx context.Context, identifier string, code ResetCode, ttl time.Duration) error
	// Get returns the stored code, or ok=false when absent or expired.
	// Expired entries are removed on read.
	Get(ctx context.Context, identifier string) (ResetCode, bool, error)
	Delete(ctx context.Context, identifier string) error
}

// MemoryCodeStore keeps codes in-process for dev and tests.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]ResetCode
}

// NewMemoryCodeStore creates an empty store.
func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: make(map[string]ResetCode)}
}

// Put stores a code keyed by identifier.
func (s *MemoryCodeStore) Put(_ context.Context, identifier string, code ResetCode, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[identifier] = code
	return nil
}

// Get returns a live code, removing it when expired.
func (s *MemoryCodeStore) Get(_ context.Context, identifier string) (ResetCode, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[identifier]
	if !ok {
		return ResetCode{}, false, nil
	}
	if time.Now().After(code.ExpiresAt) {
		delete(s.codes, identifier)
		return ResetCode{}, false, nil
	}
	return code, true, nil
}

// Delete removes a code.
func (s *MemoryCodeStore) Delete(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, identifier)
	return nil
}

// RedisCodeStore shares codes across processes with a TTL as a backstop on
// top of the explicit expiry check.
type RedisCodeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCodeStore creates a store under the given key prefix.
func NewRedisCodeStore(client *redis.Client, prefix string) *RedisCodeStore {
	if prefix == "" {
		prefix = "faceattend:reset:"
	}
	return &RedisCodeStore{client: client, prefix: prefix}
}

// Put stores a code with the TTL.
func (s *RedisCodeStore) Put(ctx context.Context, identifier string, code ResetCode, ttl time.Duration) error {
	payload, err := json.Marshal(code)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+identifier, payload, ttl).Err()
}

// Get returns a live code; the explicit expiry check covers clock skew
// between writer and Redis.
func (s *RedisCodeStore) Get(ctx context.Context, identifier string) (ResetCode, bool, error) {
	payload, err := s.client.Get(ctx, s.prefix+identifier).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ResetCode{}, false, nil
		}
		return ResetCode{}, false, err
	}
	var code ResetCode
	if err := json.Unmarshal(payload, &code); err != nil {
		return ResetCode{}, false, err
	}
	if time.Now().After(code.ExpiresAt) {
		_ = s.client.Del(ctx, s.prefix+identifier).Err()
		return ResetCode{}, false, nil
	}
	return code, true, nil
}

// Delete removes a code.
func (s *RedisCodeStore) Delete(ctx context.Context, identifier string) error {
	return s.client.Del(ctx, s.prefix+identifier).Err()
}
