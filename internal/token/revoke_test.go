package token

import (
	"context"
	"os"
	"testing"
	"time"

	testdb "github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/test/db"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var redisAddr string

func TestMain(m *testing.M) {
	ep, closer := testdb.StartRedis(context.Background())
	redisAddr = ep.Addr()

	code := m.Run()
	closer()
	os.Exit(code)
}

func TestRedisRevoker(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	t.Cleanup(func() { _ = rdb.Close() })
	r := NewRedisRevoker(rdb)

	revoked, err := r.Revoked(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(t.Context(), "jti-1", time.Now().Add(time.Minute)))

	revoked, err = r.Revoked(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRedisRevoker_Expires(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	t.Cleanup(func() { _ = rdb.Close() })
	r := NewRedisRevoker(rdb)

	require.NoError(t, r.Revoke(t.Context(), "jti-2", time.Now().Add(time.Second)))
	time.Sleep(2 * time.Second)

	revoked, err := r.Revoked(t.Context(), "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevoke_AlreadyExpired(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	t.Cleanup(func() { _ = rdb.Close() })
	r := NewRedisRevoker(rdb)

	require.NoError(t, r.Revoke(t.Context(), "jti-3", time.Now().Add(-time.Minute)))

	revoked, err := r.Revoked(t.Context(), "jti-3")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevoker(t *testing.T) {
	m, err := NewMemoryRevoker(100)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(t.Context(), "jti-1", time.Now().Add(time.Minute)))

	revoked, err := m.Revoked(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = m.Revoked(t.Context(), "jti-other")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevoker_Capacity(t *testing.T) {
	m, err := NewMemoryRevoker(2)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Revoke(t.Context(), "jti-1", now.Add(time.Minute)))
	require.NoError(t, m.Revoke(t.Context(), "jti-2", now.Add(time.Hour)))
	require.ErrorIs(t, m.Revoke(t.Context(), "jti-3", now.Add(time.Hour)), ErrRevocationsFull)
	require.NoError(t, m.Revoke(t.Context(), "jti-2", now.Add(2*time.Hour)))

	for _, id := range []string{"jti-1", "jti-2"} {
		revoked, err := m.Revoked(t.Context(), id)
		require.NoError(t, err)
		assert.True(t, revoked, id)
	}

	now = now.Add(2 * time.Minute)
	require.NoError(t, m.Revoke(t.Context(), "jti-3", now.Add(time.Hour)))

	revoked, err := m.Revoked(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
	revoked, err = m.Revoked(t.Context(), "jti-3")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestNewMemoryRevoker_RejectsZeroCapacity(t *testing.T) {
	_, err := NewMemoryRevoker(0)
	require.Error(t, err)
}
