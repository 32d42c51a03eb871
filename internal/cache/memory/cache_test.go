package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/victoria-identity/internal/repository"
)

func TestCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	defer c.Stop()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)
}

func TestCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	defer c.Stop()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCache_SetNX(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	defer c.Stop()

	ok, err := c.SetNX(ctx, "key", []byte("first"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "key", []byte("second"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	defer c.Stop()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))
	require.NoError(t, c.Delete(ctx, "key"))

	exists, err := c.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCache_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	defer c.Stop()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	got[0] = 'X'

	again, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), again)
}
