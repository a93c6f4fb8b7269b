package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/domain"
)

var _ domain.Cache = (*redisad.Cache)(nil)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	require.NoError(t, c.Ping(ctx))

	in := domain.PlaceDetails{PlaceID: "p1", Name: "Flex"}
	require.NoError(t, c.Set(ctx, "place:p1", in, 10*time.Minute))

	var out domain.PlaceDetails
	ok, err := c.Get(ctx, "place:p1", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Flex", out.Name)

	mr.FastForward(11 * time.Minute)
	ok, err = c.Get(ctx, "place:p1", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_ClearOnlyOwnKeys(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	require.NoError(t, mr.Set("other:key", "keep"))
	require.NoError(t, c.Set(ctx, "find:a", "id-a", time.Hour))
	require.NoError(t, c.Set(ctx, "find:b", "id-b", time.Hour))

	require.NoError(t, c.Clear(ctx))

	var s string
	ok, _ := c.Get(ctx, "find:a", &s)
	assert.False(t, ok)
	assert.True(t, mr.Exists("other:key"))
}

func TestCache_Del(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)
	require.NoError(t, c.Set(ctx, "k", 1, time.Hour))
	require.NoError(t, c.Del(ctx, "k"))
	var n int
	ok, err := c.Get(ctx, "k", &n)
	require.NoError(t, err)
	assert.False(t, ok)
}
