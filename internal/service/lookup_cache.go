package service

import (
	"context"
	"time"

	"github.com/dukeofgo/librarius/internal/core/cache"
	"github.com/dukeofgo/librarius/internal/platform/openlibrary"
)

// CachedLookup 书目查询结果进 redis；失败不缓存
type CachedLookup struct {
	next  BookLookup
	cache *cache.Cache
	ttl   time.Duration
}

func NewCachedLookup(next BookLookup, c *cache.Cache, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, cache: c, ttl: ttl}
}

func (l *CachedLookup) LookupISBN(ctx context.Context, isbn string) (*openlibrary.Record, error) {
	return cache.GetOrLoadJSON(l.cache, ctx, "openlibrary:isbn:"+isbn, l.ttl, func(ctx context.Context) (*openlibrary.Record, error) {
		return l.next.LookupISBN(ctx, isbn)
	})
}
