package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Title string `json:"title"`
	Pages int    `json:"pages"`
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	c.Prefix = "lib:"
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestGetOrLoadJSONCachesValue(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	var calls atomic.Int32
	load := func(context.Context) (*record, error) {
		calls.Add(1)
		return &record{Title: "Dune", Pages: 412}, nil
	}

	got, err := GetOrLoadJSON(c, ctx, "isbn:1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)

	got, err = GetOrLoadJSON(c, ctx, "isbn:1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 412, got.Pages)
	assert.Equal(t, int32(1), calls.Load())

	assert.True(t, mr.Exists("lib:isbn:1"))
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("lib:isbn:1"))
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	c, mr := newCache(t)
	boom := errors.New("upstream down")
	_, err := GetOrLoadJSON(c, context.Background(), "isbn:2", time.Minute, func(context.Context) (*record, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lib:isbn:2"))
}

func TestNilCacheLoadsThrough(t *testing.T) {
	var c *Cache
	got, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, func(context.Context) (*record, error) {
		return &record{Title: "x"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "x", got.Title)
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Delete(context.Background(), "k"))
}

func TestRedisDownFallsBack(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()
	got, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}
