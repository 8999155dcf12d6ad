package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	release, ok, err := l.Acquire(ctx, "scheduler:tick", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "scheduler:tick", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lease")

	_, ok, err = l.Acquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "double release is harmless")

	_, ok, err = l.Acquire(ctx, "scheduler:tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocal_ExpiredLeaseCanBeTaken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.now = func() time.Time { return now }

	stale, ok, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired lease is free")

	// The stale holder must not drop the new lease.
	require.NoError(t, stale(ctx))
	_, ok, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
