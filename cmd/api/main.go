package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dukeofgo/librarius/internal/app"
	"github.com/dukeofgo/librarius/internal/core/config"
	"github.com/dukeofgo/librarius/internal/core/server"
	"github.com/dukeofgo/librarius/internal/transport/http/handler"
	"github.com/dukeofgo/librarius/internal/transport/http/router"
)

// 登录接口每 IP 每秒 1 次，突发 5 次
const loginRPS = rate.Limit(1)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg, "api")
	defer cleanup()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()
	log.Info("database connected", zap.String("driver", cfg.DB.Driver), zap.String("storage", cfg.Storage.Driver))

	reg := (&router.Registry{}).Register(
		handler.NewAuthHandler(a.Identity, a.JWT, loginRPS, log),
		handler.NewUserHandler(a.Identity, log),
		handler.NewBookHandler(a.Catalog, a.Lending, cfg.PresignTTL(), log),
		handler.NewAdminHandler(a.Identity, log),
	)
	mode := "release"
	if cfg.App.Env == "dev" {
		mode = "debug"
	}
	r, err := router.NewAPIEngine(log, a.JWT, reg, router.Options{
		Mode:            mode,
		Limits:          cfg.Limits,
		UploadBodyBytes: cfg.Storage.MaxPDFBytes + 1<<20,
		Ready:           a.Ping,
	})
	if err != nil {
		log.Fatal("router init failed", zap.Error(err))
	}

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("library api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("metrics", baseURL+"/metrics"),
	)

	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("library api start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("library api stopped gracefully")
}
