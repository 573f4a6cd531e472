package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/libris/pkg/cache"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory(10, discard())

	_, ok, err := c.Get(ctx, "viewed:1:user:2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "viewed:1:user:2", "1", time.Hour))

	v, ok, err := c.Get(ctx, "viewed:1:user:2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, c.Delete(ctx, "viewed:1:user:2"))
	_, ok, _ = c.Get(ctx, "viewed:1:user:2")
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory(10, discard())

	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryHitDoesNotExtend(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory(10, discard())

	require.NoError(t, c.Set(ctx, "k", "v", 60*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, ok, _ := c.Get(ctx, "k")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewSelectsDriver(t *testing.T) {
	c, err := cache.New(&cache.Config{Driver: cache.DriverMemory}, discard())
	require.NoError(t, err)
	assert.IsType(t, &cache.Memory{}, c)

	_, err = cache.New(&cache.Config{Driver: "memcached"}, discard())
	assert.ErrorIs(t, err, cache.ErrUnknownDriver)
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_CACHE_DRIVER", "redis")
	t.Setenv("TEST_CACHE_DB", "3")

	cfg := &cache.Config{}
	require.NoError(t, cfg.Finalize(&cache.Env{Driver: "TEST_CACHE_DRIVER", DB: "TEST_CACHE_DB"}))

	assert.Equal(t, cache.DriverRedis, cfg.Driver)
	assert.Equal(t, 3, cfg.DB)
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Equal(t, "libris:", cfg.Prefix)

	bad := &cache.Config{Driver: "memcached"}
	assert.ErrorIs(t, bad.Finalize(nil), cache.ErrUnknownDriver)
}
