package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRevocationsFull = errors.New("too many revoked tokens")

// Revoker remembers signed out token ids until the tokens would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

const revokedPrefix = "museum:revoked:"

type RedisRevoker struct {
	rdb *redis.Client
}

func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}

	if err := r.rdb.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("store revoked token: %w", err)
	}
	return nil
}

func (r *RedisRevoker) Revoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.rdb.Get(ctx, revokedPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return true, nil
}

// MemoryRevoker keeps revocations in process when no redis is configured. It holds at most max
// unexpired revocations; a revocation beyond that fails instead of pushing an earlier one out.
type MemoryRevoker struct {
	max int
	now func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryRevoker(maxTokens int64) (*MemoryRevoker, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("revocation capacity must be positive, got %d", maxTokens)
	}

	return &MemoryRevoker{
		max:     int(maxTokens),
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

func (m *MemoryRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !until.After(now) {
		return nil
	}

	if _, ok := m.revoked[tokenID]; !ok && len(m.revoked) >= m.max {
		m.pruneLocked(now)
		if len(m.revoked) >= m.max {
			return ErrRevocationsFull
		}
	}
	m.revoked[tokenID] = until
	return nil
}

func (m *MemoryRevoker) Revoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !until.After(m.now()) {
		delete(m.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (m *MemoryRevoker) pruneLocked(now time.Time) {
	for id, until := range m.revoked {
		if !until.After(now) {
			delete(m.revoked, id)
		}
	}
}
