package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukeofgo/librarius/internal/core/cache"
	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/platform/openlibrary"
	"github.com/dukeofgo/librarius/internal/service"
)

func TestCachedLookupHitsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })

	lk := &lookupMock{}
	lk.On("LookupISBN", mock.Anything, isbn).
		Return(&openlibrary.Record{ISBN: isbn, Title: "Dune", Author: "Frank Herbert"}, nil).Once()
	lk.On("LookupISBN", mock.Anything, "0000000000").Return(nil, domain.ErrRecordNotFound).Twice()

	cl := service.NewCachedLookup(lk, c, time.Hour)
	ctx := context.Background()
	for range 3 {
		rec, err := cl.LookupISBN(ctx, isbn)
		require.NoError(t, err)
		assert.Equal(t, "Dune", rec.Title)
	}
	assert.True(t, mr.Exists("openlibrary:isbn:"+isbn))
	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("openlibrary:isbn:"+isbn))

	// 失败结果不缓存
	for range 2 {
		_, err := cl.LookupISBN(ctx, "0000000000")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	}
	lk.AssertExpectations(t)
}

func TestCachedLookupWithoutRedis(t *testing.T) {
	lk := &lookupMock{}
	lk.On("LookupISBN", mock.Anything, isbn).Return(&openlibrary.Record{ISBN: isbn, Title: "Dune"}, nil).Twice()

	cl := service.NewCachedLookup(lk, nil, time.Hour)
	for range 2 {
		_, err := cl.LookupISBN(context.Background(), isbn)
		require.NoError(t, err)
	}
	lk.AssertExpectations(t)
}
