package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker is a server-side token revocation registry. Logout revokes the
// token's JTI for the remainder of its lifetime; the middleware rejects
// revoked tokens even though their signature still verifies.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevoker keeps revoked JTIs in process memory. Single-node only.
type MemoryRevoker struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // jti -> expiry of the revocation entry
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time)}
}

func (m *MemoryRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("empty jti")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	expiry, ok := m.revoked[jti]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		m.mu.Lock()
		delete(m.revoked, jti)
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// RedisRevoker stores revoked JTIs in Redis with a TTL matching the token
// lifetime, so entries clean themselves up.
type RedisRevoker struct {
	client *redis.Client
	prefix string
}

func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: "revoked_token:"}
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("empty jti")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return r.client.Set(ctx, r.prefix+jti, "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := r.client.Get(ctx, r.prefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
