package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func exerciseCache(t *testing.T, c Cache) {
	ctx := context.Background()

	_, err := c.Get(ctx, StatsPrefix+"all")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, StatsPrefix+"all", []byte(`{"total":3}`), time.Minute))
	require.NoError(t, c.Set(ctx, StatsPrefix+"org:1", []byte(`{"total":1}`), time.Minute))
	require.NoError(t, c.Set(ctx, "session:abc", []byte(`{}`), time.Minute))

	got, err := c.Get(ctx, StatsPrefix+"all")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":3}`, string(got))

	require.NoError(t, InvalidateStats(ctx, c))
	_, err = c.Get(ctx, StatsPrefix+"all")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = c.Get(ctx, StatsPrefix+"org:1")
	assert.ErrorIs(t, err, ErrMiss)

	_, err = c.Get(ctx, "session:abc")
	assert.NoError(t, err)
}

func TestRedisCache(t *testing.T) {
	c, _ := newRedisCache(t)
	exerciseCache(t, c)
}

func TestLocalCache(t *testing.T) {
	exerciseCache(t, NewLocal(time.Minute))
}

func TestRedisCache_TTL(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, StatsPrefix+"all", []byte("1"), time.Second))
	mr.FastForward(2 * time.Second)
	_, err := c.Get(ctx, StatsPrefix+"all")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestInvalidateStats_NilCache(t *testing.T) {
	assert.NoError(t, InvalidateStats(context.Background(), nil))
}
