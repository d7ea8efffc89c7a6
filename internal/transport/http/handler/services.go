// Package handler HTTP 接口模块，每个 Handler 实现 router 的 APIModule / AdminModule
package handler

import (
	"context"
	"io"

	"github.com/dukeofgo/librarius/internal/core/auth"
	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/service"
)

// Catalog 由 service.CatalogService 实现
type Catalog interface {
	Create(ctx context.Context, b *domain.Book) (*domain.Book, error)
	CreateFromLookup(ctx context.Context, isbn string) (*domain.Book, error)
	Get(ctx context.Context, isbnOrID string) (*domain.Book, error)
	List(ctx context.Context, skip, limit int) ([]domain.Book, int64, error)
	Update(ctx context.Context, id uint, p domain.BookPatch) (*domain.Book, error)
	Delete(ctx context.Context, id uint) error
	SetCover(ctx context.Context, id uint, img []byte) error
	Cover(ctx context.Context, id uint) ([]byte, string, error)
	UploadPDF(ctx context.Context, id uint, body io.Reader, size int64, contentType string) (*domain.Book, error)
	PDFURL(ctx context.Context, isbn string) (string, error)
	StaticURL(ctx context.Context, filename string) (string, error)
}

// Lending 由 service.LendingService 实现
type Lending interface {
	Borrow(ctx context.Context, bookID uint, email string) (*domain.Book, error)
	Return(ctx context.Context, bookID uint, email string) (*domain.Book, error)
}

// Identity 由 service.IdentityService 实现
type Identity interface {
	Register(ctx context.Context, in service.Registration) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Get(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, skip, limit int, q string) ([]domain.User, int64, error)
	Update(ctx context.Context, actor domain.Principal, email string, p domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, email string) error
	BorrowedBooks(ctx context.Context, email string) ([]domain.Book, error)
}

// Tokens 由 auth.JWTer 实现
type Tokens interface {
	IssuePair(email string, role domain.Role) (auth.TokenPair, error)
	ParseRefresh(token string) (*auth.Claims, error)
}

var (
	_ Catalog  = (*service.CatalogService)(nil)
	_ Lending  = (*service.LendingService)(nil)
	_ Identity = (*service.IdentityService)(nil)
	_ Tokens   = (*auth.JWTer)(nil)
)
