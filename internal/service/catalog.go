package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dukeofgo/librarius/internal/core/storage"
	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/platform/openlibrary"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	pdfContentType  = "application/pdf"
)

var DefaultStaticFiles = []string{"cover-coming-soon.jpg"}

type BookLookup interface {
	LookupISBN(ctx context.Context, isbn string) (*openlibrary.Record, error)
}

type CatalogOptions struct {
	PresignTTL    time.Duration
	MaxPDFBytes   int64
	MaxCoverBytes int64
	// StaticFiles 公开可签发的静态资源白名单
	StaticFiles []string
	Now         func() time.Time
	Log         *zap.Logger
}

type CatalogService struct {
	store   domain.Store
	lookup  BookLookup
	objects storage.ObjectStore
	opts    CatalogOptions
	log     *zap.Logger
}

func NewCatalogService(store domain.Store, lookup BookLookup, objects storage.ObjectStore, o CatalogOptions) *CatalogService {
	if o.PresignTTL <= 0 {
		o.PresignTTL = time.Hour
	}
	if o.MaxPDFBytes <= 0 {
		o.MaxPDFBytes = 100_000_000
	}
	if o.MaxCoverBytes <= 0 {
		o.MaxCoverBytes = 5 << 20
	}
	if len(o.StaticFiles) == 0 {
		o.StaticFiles = DefaultStaticFiles
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return &CatalogService{store: store, lookup: lookup, objects: objects, opts: o, log: o.Log}
}

// Create 手工建书；借阅字段一律从“可借”开始
func (s *CatalogService) Create(ctx context.Context, b *domain.Book) (*domain.Book, error) {
	isbn, ok := domain.NormalizeISBN(b.ISBN)
	if !ok {
		return nil, domain.Invalid("isbn must be 10 or 13 digits")
	}
	b.ISBN = isbn
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	if b.Title == "" || b.Author == "" {
		return nil, domain.Invalid("title and author are required")
	}
	b.ID = 0
	b.UserID, b.Borrower, b.BorrowedDate, b.ReturnedDate, b.IsBorrowed = nil, nil, nil, nil, false
	b.CoverImage = ""
	b.AddedDate = domain.DateOf(s.opts.Now())

	if err := s.store.Books().Create(ctx, b); err != nil {
		return nil, err
	}
	s.log.Info("book created", zap.Uint("book_id", b.ID), zap.String("isbn", b.ISBN))
	return b, nil
}

// CreateFromLookup 按 isbn 从 Open Library 拉书目后建书。本地已有时不请求上游。
func (s *CatalogService) CreateFromLookup(ctx context.Context, raw string) (*domain.Book, error) {
	isbn, ok := domain.NormalizeISBN(raw)
	if !ok {
		return nil, domain.Invalid("isbn must be 10 or 13 digits")
	}
	if _, err := s.store.Books().FindByISBN(ctx, isbn); err == nil {
		return nil, domain.ErrDuplicateISBN
	} else if !errors.Is(err, domain.ErrBookNotFound) {
		return nil, err
	}

	rec, err := s.lookup.LookupISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, domain.ErrUpstream) {
			s.log.Warn("openlibrary lookup failed", zap.String("isbn", isbn), zap.Error(err))
		}
		return nil, err
	}
	return s.Create(ctx, &domain.Book{
		ISBN:          rec.ISBN,
		Title:         rec.Title,
		Author:        rec.Author,
		Edition:       rec.Edition,
		Publisher:     rec.Publisher,
		PublishDate:   rec.PublishDate,
		PublishPlace:  rec.PublishPlace,
		NumberOfPages: rec.NumberOfPages,
		Description:   rec.Description,
		Language:      rec.Language,
		LCCN:          rec.LCCN,
		Subtitle:      rec.Subtitle,
		Subjects:      rec.Subjects,
	})
}

func (s *CatalogService) Get(ctx context.Context, isbnOrID string) (*domain.Book, error) {
	return s.store.Books().FindByISBNOrID(ctx, strings.TrimSpace(isbnOrID))
}

func (s *CatalogService) GetByID(ctx context.Context, id uint) (*domain.Book, error) {
	return s.store.Books().FindByID(ctx, id)
}

func ClampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return skip, limit
}

func (s *CatalogService) List(ctx context.Context, skip, limit int) ([]domain.Book, int64, error) {
	skip, limit = ClampPage(skip, limit)
	return s.store.Books().List(ctx, skip, limit)
}

func (s *CatalogService) Update(ctx context.Context, id uint, p domain.BookPatch) (*domain.Book, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b, err := s.store.Books().Update(ctx, id, p.Columns())
	if err != nil {
		return nil, err
	}
	s.log.Info("book updated", zap.Uint("book_id", b.ID), zap.String("isbn", b.ISBN))
	return b, nil
}

// Delete 借出中的书拒绝删除；PDF 对象尽力清理，失败只记日志
func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	var isbn string
	err := s.store.Tx(ctx, func(tx domain.Store) error {
		b, err := tx.Books().FindByID(ctx, id)
		if err != nil {
			return err
		}
		isbn = b.ISBN
		return tx.Books().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("book deleted", zap.Uint("book_id", id), zap.String("isbn", isbn))
	if err := s.objects.Delete(ctx, domain.PDFKey(isbn)); err != nil {
		s.log.Warn("delete pdf object failed", zap.String("key", domain.PDFKey(isbn)), zap.Error(err))
	}
	return nil
}

// SetCover 封面以 base64 文本存库
func (s *CatalogService) SetCover(ctx context.Context, id uint, img []byte) error {
	if len(img) == 0 {
		return domain.Invalid("cover image is empty")
	}
	if int64(len(img)) > s.opts.MaxCoverBytes {
		return domain.Invalid("cover image exceeds %d bytes", s.opts.MaxCoverBytes)
	}
	if ct := http.DetectContentType(img); !strings.HasPrefix(ct, "image/") {
		return domain.Invalid("cover must be an image, got %s", ct)
	}
	encoded := base64.StdEncoding.EncodeToString(img)
	if _, err := s.store.Books().Update(ctx, id, map[string]any{"cover_image": encoded}); err != nil {
		return err
	}
	s.log.Info("book cover updated", zap.Uint("book_id", id), zap.Int("bytes", len(img)))
	return nil
}

// Cover 返回原始字节和探测到的 content type
func (s *CatalogService) Cover(ctx context.Context, id uint) ([]byte, string, error) {
	b, err := s.store.Books().FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !b.HasCover() {
		return nil, "", domain.ErrNoCover
	}
	img, err := base64.StdEncoding.DecodeString(b.CoverImage)
	if err != nil {
		return nil, "", fmt.Errorf("decode cover %d: %w", id, err)
	}
	ct := http.DetectContentType(img)
	if !strings.HasPrefix(ct, "image/") {
		ct = "image/jpeg"
	}
	return img, ct, nil
}

// UploadPDF 存到 {isbn}.pdf
func (s *CatalogService) UploadPDF(ctx context.Context, id uint, body io.Reader, size int64, contentType string) (*domain.Book, error) {
	b, err := s.store.Books().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contentType != pdfContentType {
		return nil, domain.Invalid("Only PDF files are allowed")
	}
	if size >= s.opts.MaxPDFBytes {
		return nil, domain.Invalid("File size is too large, must be less than %dMB", s.opts.MaxPDFBytes/1_000_000)
	}
	key := b.PDFKey()
	if err := s.objects.Put(ctx, key, body, size, pdfContentType); err != nil {
		return nil, &domain.StorageError{Op: "put", Key: key, Err: err}
	}
	s.log.Info("book pdf uploaded", zap.Uint("book_id", b.ID), zap.String("key", key), zap.Int64("bytes", size))
	return b, nil
}

// PDFURL 只为目录中存在的 isbn 签发链接
func (s *CatalogService) PDFURL(ctx context.Context, raw string) (string, error) {
	isbn, ok := domain.NormalizeISBN(raw)
	if !ok {
		return "", domain.Invalid("isbn must be 10 or 13 digits")
	}
	b, err := s.store.Books().FindByISBN(ctx, isbn)
	if err != nil {
		return "", err
	}
	return s.presign(ctx, b.PDFKey())
}

// StaticURL 公共静态资源（如 cover-coming-soon.jpg）。接口匿名可访问，
// 只签发白名单内的 key；PDF 一律走 PDFURL
func (s *CatalogService) StaticURL(ctx context.Context, filename string) (string, error) {
	if filename == "" || path.Base(filename) != filename || strings.HasPrefix(filename, ".") {
		return "", domain.Invalid("invalid file name")
	}
	if strings.EqualFold(path.Ext(filename), ".pdf") || !slices.Contains(s.opts.StaticFiles, filename) {
		return "", domain.ErrStaticNotFound
	}
	return s.presign(ctx, filename)
}

func (s *CatalogService) presign(ctx context.Context, key string) (string, error) {
	u, err := s.objects.PresignGet(ctx, key, s.opts.PresignTTL)
	if err != nil {
		return "", &domain.StorageError{Op: "presign", Key: key, Err: err}
	}
	return u, nil
}
