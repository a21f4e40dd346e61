package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, err := c.Get(ctx, "missing")
	require.ErrorIs(t, err, ports.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, c.Delete(ctx, "k", "other"))
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Second))
	now = now.Add(time.Second)
	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestMemoryCacheIncrKeepsOriginalExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	n, err := c.IncrWithTTL(ctx, "lease", time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	now = now.Add(59 * time.Minute)
	n, err = c.IncrWithTTL(ctx, "lease", time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	now = now.Add(time.Minute)
	n, err = c.IncrWithTTL(ctx, "lease", time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
