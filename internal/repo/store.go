package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dukeofgo/librarius/internal/domain"
)

// Store gorm 版 domain.Store
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Books() domain.BookRepository { return NewBookRepo(s.db) }
func (s *Store) Users() domain.UserRepository { return NewUserRepo(s.db) }

// Tx fn 返回错误或 panic 都会回滚
func (s *Store) Tx(ctx context.Context, fn func(domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// AutoMigrate 建表；users 必须先于 books（外键）
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.Book{})
}

func isDupKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 个别驱动版本不翻译错误时按文案兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}

func isFKViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key")
}
