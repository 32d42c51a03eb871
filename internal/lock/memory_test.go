package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	ml := NewMemoryLocker()
	key := Keys.OwnerSetup()

	acquired, err := ml.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	// Second acquire while held must fail.
	acquired, err = ml.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	held, err := ml.IsHeld(ctx, key)
	require.NoError(t, err)
	assert.True(t, held)

	released, err := ml.Release(ctx, key)
	require.NoError(t, err)
	assert.True(t, released)

	acquired, err = ml.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryLocker_ExpiredLockCanBeReacquired(t *testing.T) {
	ctx := context.Background()
	ml := NewMemoryLocker()

	acquired, err := ml.Acquire(ctx, "lock:test", time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(5 * time.Millisecond)

	acquired, err = ml.Acquire(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryLocker_Extend(t *testing.T) {
	ctx := context.Background()
	ml := NewMemoryLocker()

	extended, err := ml.Extend(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	assert.False(t, extended, "cannot extend an unheld lock")

	acquired, err := ml.Acquire(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	extended, err = ml.Extend(ctx, "lock:test", time.Hour)
	require.NoError(t, err)
	assert.True(t, extended)
}

func TestMemoryLocker_ReleaseUnheld(t *testing.T) {
	released, err := NewMemoryLocker().Release(context.Background(), "lock:test")
	require.NoError(t, err)
	assert.False(t, released)
}
