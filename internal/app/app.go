// Package app 按配置组装依赖，供 cmd/api 与 cmd/admin 共用
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/dukeofgo/librarius/internal/core/auth"
	"github.com/dukeofgo/librarius/internal/core/cache"
	"github.com/dukeofgo/librarius/internal/core/config"
	"github.com/dukeofgo/librarius/internal/core/database"
	"github.com/dukeofgo/librarius/internal/core/logger"
	"github.com/dukeofgo/librarius/internal/core/storage"
	"github.com/dukeofgo/librarius/internal/platform/openlibrary"
	"github.com/dukeofgo/librarius/internal/repo"
	"github.com/dukeofgo/librarius/internal/service"
)

type App struct {
	Cfg      *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Objects  storage.ObjectStore
	Cache    *cache.Cache
	JWT      *auth.JWTer
	Catalog  *service.CatalogService
	Lending  *service.LendingService
	Identity *service.IdentityService

	closers []func()
}

// NewLogger 按 log.* 配置构建，顺带把标准库 log 接到 zap
func NewLogger(cfg *config.Config, service string) (*zap.Logger, func()) {
	l, sync := logger.Build(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: cfg.App.Env == "dev",
		Service:     service,
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.File.Enable,
			Filename:   cfg.Log.File.Filename,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	undo := logger.RedirectStdLog(l, zapcore.InfoLevel)
	return l, func() {
		undo()
		sync()
	}
}

func OpenDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	return database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		SlowThresholdMs:    cfg.DB.SlowThresholdMs,
		Log:                l,
	})
}

// New 连接数据库、对象存储与（可选的）Redis，并构造三个服务
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: l}

	db, err := OpenDB(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.DB = db
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	if cfg.DB.AutoMigrate {
		if err := repo.AutoMigrate(db); err != nil {
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	objects, err := storage.New(ctx, storage.Options{
		Driver:       cfg.Storage.Driver,
		Endpoint:     cfg.Storage.Endpoint,
		Region:       cfg.Storage.Region,
		Bucket:       cfg.Storage.Bucket,
		AccessKey:    cfg.Storage.AccessKey,
		SecretKey:    cfg.Storage.SecretKey,
		UsePathStyle: cfg.Storage.UsePathStyle,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}
	a.Objects = objects

	var lookup service.BookLookup = openlibrary.NewClient(openlibrary.Options{
		BaseURL:   cfg.OpenLibrary.BaseURL,
		UserAgent: cfg.OpenLibrary.UserAgent,
		Timeout:   time.Duration(cfg.OpenLibrary.TimeoutSec) * time.Second,
		RPS:       cfg.OpenLibrary.RPS,
	})
	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		c.Prefix = cfg.App.Name + ":"
		c.Log = l
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := c.Ping(pctx)
		cancel()
		if err != nil {
			// 缓存不可用不影响启动，直接回源
			l.Warn("redis unavailable, lookup cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = c.Close()
		} else {
			a.Cache = c
			a.closers = append(a.closers, func() { _ = c.Close() })
			lookup = service.NewCachedLookup(lookup, c, time.Duration(cfg.Redis.LookupTTLMin)*time.Minute)
		}
	}

	store := repo.NewStore(db)
	a.JWT = &auth.JWTer{
		Secret:     []byte(cfg.JWT.Secret),
		Issuer:     cfg.JWT.Issuer,
		TTL:        cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	}
	a.Catalog = service.NewCatalogService(store, lookup, objects, service.CatalogOptions{
		PresignTTL:    cfg.PresignTTL(),
		MaxPDFBytes:   cfg.Storage.MaxPDFBytes,
		MaxCoverBytes: cfg.Storage.MaxCoverBytes,
		StaticFiles:   cfg.Storage.StaticFiles,
		Log:           l,
	})
	a.Lending = service.NewLendingService(store, service.LendingOptions{
		EnforceEligibility: cfg.Lending.EnforceEligibility,
		Log:                l,
	})
	a.Identity = service.NewIdentityService(store, nil, l)
	return a, nil
}

// Ping 健康检查：数据库可达
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 逆序释放
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
