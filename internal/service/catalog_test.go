package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dukeofgo/librarius/internal/core/storage"
	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/platform/openlibrary"
	"github.com/dukeofgo/librarius/internal/repo"
	"github.com/dukeofgo/librarius/internal/service"
	"github.com/dukeofgo/librarius/internal/testutil"
)

type lookupMock struct{ mock.Mock }

func (m *lookupMock) LookupISBN(ctx context.Context, isbn string) (*openlibrary.Record, error) {
	args := m.Called(ctx, isbn)
	rec, _ := args.Get(0).(*openlibrary.Record)
	return rec, args.Error(1)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func newCatalog(t *testing.T) (*service.CatalogService, *gorm.DB, *lookupMock, *storage.Memory) {
	t.Helper()
	db := testutil.NewDB(t)
	lk := &lookupMock{}
	objects := storage.NewMemory("http://files")
	svc := service.NewCatalogService(repo.NewStore(db), lk, objects, service.CatalogOptions{
		PresignTTL:    time.Hour,
		MaxPDFBytes:   1_000,
		MaxCoverBytes: 64,
		Now:           testutil.Clock,
	})
	return svc, db, lk, objects
}

func TestCatalogCreateNormalizesAndResetsLoan(t *testing.T) {
	svc, _, _, _ := newCatalog(t)
	uid := uint(7)

	b, err := svc.Create(context.Background(), &domain.Book{
		ISBN:       "978-0-316-41424-1",
		Title:      "  Dune ",
		Author:     "Frank Herbert",
		UserID:     &uid,
		IsBorrowed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, isbn, b.ISBN)
	assert.Equal(t, "Dune", b.Title)
	assert.False(t, b.IsBorrowed)
	assert.Nil(t, b.UserID)
	assert.Equal(t, domain.DateOf(testutil.Today), b.AddedDate)

	_, err = svc.Create(context.Background(), &domain.Book{ISBN: isbn, Title: "x", Author: "y"})
	assert.ErrorIs(t, err, domain.ErrDuplicateISBN)

	_, err = svc.Create(context.Background(), &domain.Book{ISBN: "12345", Title: "x", Author: "y"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Create(context.Background(), &domain.Book{ISBN: "0316414247", Author: "y"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCatalogCreateFromLookup(t *testing.T) {
	svc, _, lk, _ := newCatalog(t)
	pages := 1007
	lk.On("LookupISBN", mock.Anything, isbn).Return(&openlibrary.Record{
		ISBN: isbn, Title: "The Way Of Kings", Author: "Brandon Sanderson", NumberOfPages: &pages,
	}, nil).Once()

	b, err := svc.CreateFromLookup(context.Background(), "978-0316414241")
	require.NoError(t, err)
	assert.Equal(t, "The Way Of Kings", b.Title)
	assert.Equal(t, &pages, b.NumberOfPages)

	// 已存在时不再请求上游
	_, err = svc.CreateFromLookup(context.Background(), isbn)
	assert.ErrorIs(t, err, domain.ErrDuplicateISBN)
	lk.AssertExpectations(t)
}

func TestCatalogCreateFromLookupErrors(t *testing.T) {
	svc, _, lk, _ := newCatalog(t)
	lk.On("LookupISBN", mock.Anything, "0000000000").Return(nil, domain.ErrRecordNotFound)
	lk.On("LookupISBN", mock.Anything, "1111111111").
		Return(nil, &domain.UpstreamError{Op: "lookup", Timeout: true, Err: context.DeadlineExceeded})

	_, err := svc.CreateFromLookup(context.Background(), "0000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.CreateFromLookup(context.Background(), "1111111111")
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, "request time out", err.Error())

	_, err = svc.CreateFromLookup(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrValidation)
	lk.AssertNumberOfCalls(t, "LookupISBN", 2)
}

func TestCatalogUpdateLeavesLoanFields(t *testing.T) {
	svc, db, _, _ := newCatalog(t)
	b := testutil.SeedBook(t, db, isbn)
	title := "New title"

	got, err := svc.Update(context.Background(), b.ID, domain.BookPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, "Author", got.Author)
	assert.Equal(t, isbn, got.ISBN)

	blank := " "
	_, err = svc.Update(context.Background(), b.ID, domain.BookPatch{Author: &blank})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Update(context.Background(), 99, domain.BookPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestCatalogListClampsPage(t *testing.T) {
	svc, db, _, _ := newCatalog(t)
	for _, n := range []string{"9780000000001", "9780000000002", "9780000000003"} {
		testutil.SeedBook(t, db, n)
	}
	books, total, err := svc.List(context.Background(), -5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, books, 3)

	books, _, err = svc.List(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "9780000000002", books[0].ISBN)

	skip, limit := service.ClampPage(0, 500)
	assert.Equal(t, 0, skip)
	assert.Equal(t, service.MaxPageSize, limit)
}

func TestCatalogDeleteRejectsBorrowed(t *testing.T) {
	svc, db, _, objects := newCatalog(t)
	b := testutil.SeedBook(t, db, isbn)
	testutil.SeedUser(t, db, "alice@x.com", domain.RoleUser)
	ctx := context.Background()
	require.NoError(t, objects.Put(ctx, b.PDFKey(), strings.NewReader("%PDF"), 4, "application/pdf"))

	_, err := newLending(repo.NewStore(db), false).Borrow(ctx, b.ID, "alice@x.com")
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, b.ID), domain.ErrActiveLoan)

	_, err = newLending(repo.NewStore(db), false).Return(ctx, b.ID, "alice@x.com")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, b.ID))

	_, err = svc.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
	_, ok := objects.Object(b.PDFKey())
	assert.False(t, ok)
	assert.ErrorIs(t, svc.Delete(ctx, b.ID), domain.ErrBookNotFound)
}

func TestCatalogCoverRoundTrip(t *testing.T) {
	svc, db, _, _ := newCatalog(t)
	b := testutil.SeedBook(t, db, isbn)
	ctx := context.Background()

	_, _, err := svc.Cover(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNoCover)

	assert.ErrorIs(t, svc.SetCover(ctx, b.ID, []byte("plain text, not an image")), domain.ErrValidation)
	assert.ErrorIs(t, svc.SetCover(ctx, b.ID, bytes.Repeat(pngHeader, 4)), domain.ErrValidation)
	assert.ErrorIs(t, svc.SetCover(ctx, 99, pngHeader), domain.ErrBookNotFound)

	require.NoError(t, svc.SetCover(ctx, b.ID, pngHeader))
	img, ct, err := svc.Cover(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, img)
	assert.Equal(t, "image/png", ct)
}

func TestCatalogUploadPDF(t *testing.T) {
	svc, db, _, objects := newCatalog(t)
	b := testutil.SeedBook(t, db, isbn)
	ctx := context.Background()
	body := "%PDF-1.7 tiny"

	_, err := svc.UploadPDF(ctx, b.ID, strings.NewReader(body), int64(len(body)), "text/plain")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Only PDF files are allowed", err.Error())

	_, err = svc.UploadPDF(ctx, b.ID, strings.NewReader(body), 1_000, "application/pdf")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "File size is too large")

	_, err = svc.UploadPDF(ctx, 99, strings.NewReader(body), int64(len(body)), "application/pdf")
	assert.ErrorIs(t, err, domain.ErrBookNotFound)

	got, err := svc.UploadPDF(ctx, b.ID, strings.NewReader(body), int64(len(body)), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, isbn, got.ISBN)
	o, ok := objects.Object(isbn + ".pdf")
	require.True(t, ok)
	assert.Equal(t, body, string(o.Data))
}

type brokenStore struct{ *storage.Memory }

func (brokenStore) Put(context.Context, string, io.Reader, int64, string) error {
	return errors.New("bucket unavailable")
}

func TestCatalogUploadPDFStorageFailure(t *testing.T) {
	db := testutil.NewDB(t)
	b := testutil.SeedBook(t, db, isbn)
	svc := service.NewCatalogService(repo.NewStore(db), &lookupMock{}, brokenStore{storage.NewMemory("http://files")}, service.CatalogOptions{})

	_, err := svc.UploadPDF(context.Background(), b.ID, strings.NewReader("%PDF"), 4, "application/pdf")
	assert.ErrorIs(t, err, domain.ErrStorage)
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, isbn+".pdf", se.Key)
}

func TestCatalogPresign(t *testing.T) {
	svc, db, _, _ := newCatalog(t)
	testutil.SeedBook(t, db, isbn)
	ctx := context.Background()

	u, err := svc.PDFURL(ctx, "978-0-316-41424-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://files/"+isbn+".pdf?expires="))

	_, err = svc.PDFURL(ctx, "9780000000009")
	assert.ErrorIs(t, err, domain.ErrBookNotFound)

	u, err = svc.StaticURL(ctx, "cover-coming-soon.jpg")
	require.NoError(t, err)
	assert.Contains(t, u, "cover-coming-soon.jpg")

	for _, bad := range []string{"", "../secret", "a/b.jpg", ".env"} {
		_, err = svc.StaticURL(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrValidation, bad)
	}

	// 静态接口不能拿来签发书的 PDF 或白名单外的 key
	for _, hidden := range []string{isbn + ".pdf", isbn + ".PDF", "other.jpg"} {
		_, err = svc.StaticURL(ctx, hidden)
		assert.ErrorIs(t, err, domain.ErrStaticNotFound, hidden)
	}
}

func TestCatalogStaticAllowlist(t *testing.T) {
	db := testutil.NewDB(t)
	svc := service.NewCatalogService(repo.NewStore(db), &lookupMock{}, storage.NewMemory("http://files"), service.CatalogOptions{
		StaticFiles: []string{"banner.png", "manual.pdf"},
	})
	ctx := context.Background()

	u, err := svc.StaticURL(ctx, "banner.png")
	require.NoError(t, err)
	assert.Contains(t, u, "banner.png")

	_, err = svc.StaticURL(ctx, "cover-coming-soon.jpg")
	assert.ErrorIs(t, err, domain.ErrStaticNotFound)
	_, err = svc.StaticURL(ctx, "manual.pdf")
	assert.ErrorIs(t, err, domain.ErrStaticNotFound)
}
