package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a live server: TEST_REDIS_ADDR=localhost:6379 go test ./internal/lock
func TestRedis_LeaseIsExclusiveAndOwned(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := "taskbot-test:" + uuid.NewString() + ":"

	a, err := NewRedis(ctx, RedisOptions{Addr: addr, Prefix: prefix})
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRedis(ctx, RedisOptions{Addr: addr, Prefix: prefix})
	require.NoError(t, err)
	defer b.Close()

	release, ok, err := a.Acquire(ctx, "scheduler:tick", 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Acquire(ctx, "scheduler:tick", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// After expiry another holder takes it; the stale release must not free it.
	time.Sleep(300 * time.Millisecond)
	releaseB, ok, err := b.Acquire(ctx, "scheduler:tick", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, release(ctx))

	_, ok, err = a.Acquire(ctx, "scheduler:tick", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, releaseB(ctx))
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedis(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
