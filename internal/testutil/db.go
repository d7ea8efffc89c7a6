// Package testutil 测试公共夹具：sqlite 临时库、种子数据
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dukeofgo/librarius/internal/core/database"
	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/repo"
)

// Today 测试里固定的“今天”
var Today = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func Clock() time.Time { return Today }

// NewDB 每个测试一个 sqlite 文件；单连接，事务天然串行
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedUser 密码 hash 是占位值，不能登录
func SeedUser(t testing.TB, db *gorm.DB, email string, role domain.Role) *domain.User {
	t.Helper()
	u := domain.NewUser(email, "name-"+email, nil, "x", Today)
	u.Status = role
	require.NoError(t, repo.NewUserRepo(db).Create(context.Background(), u))
	return u
}

func SeedBook(t testing.TB, db *gorm.DB, isbn string) *domain.Book {
	t.Helper()
	b := &domain.Book{ISBN: isbn, Title: "Title " + isbn, Author: "Author", AddedDate: domain.DateOf(Today)}
	require.NoError(t, repo.NewBookRepo(db).Create(context.Background(), b))
	return b
}
