package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dukeofgo/librarius/internal/core/auth"
	"github.com/dukeofgo/librarius/internal/core/config"
	"github.com/dukeofgo/librarius/internal/core/server"
	"github.com/dukeofgo/librarius/internal/transport/http/ez"
	"github.com/dukeofgo/librarius/internal/transport/http/handler"
	mdw "github.com/dukeofgo/librarius/internal/transport/http/middleware"
	resp "github.com/dukeofgo/librarius/internal/transport/http/response"
)

type Options struct {
	Mode   string
	Limits config.Limits
	// PDF 上传单独放宽的请求体上限与超时
	UploadBodyBytes int64
	UploadTimeout   time.Duration
	// Ready 健康检查时调用（如 DB ping），可为空
	Ready func(ctx context.Context) error
}

func NewAPIEngine(l *zap.Logger, jwter *auth.JWTer, reg *Registry, o Options) (*gin.Engine, error) {
	if err := ez.RegisterValidators(); err != nil {
		return nil, err
	}
	lim := o.Limits
	if lim.RPS <= 0 {
		lim.RPS = 200
	}
	if lim.Burst <= 0 {
		lim.Burst = 400
	}
	if lim.Concurrency <= 0 {
		lim.Concurrency = 300
	}
	if lim.MaxBodyBytes <= 0 {
		lim.MaxBodyBytes = 16 << 20
	}
	if lim.RequestTimeout <= 0 {
		lim.RequestTimeout = 10
	}
	if o.UploadBodyBytes <= 0 {
		// multipart 包头留 1MB 余量
		o.UploadBodyBytes = 100_000_000 + 1<<20
	}
	if o.UploadTimeout <= 0 {
		o.UploadTimeout = 5 * time.Minute
	}

	r := server.NewRouter(server.Options{Mode: o.Mode, CORSOrigins: lim.CORSOrigins})

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.Recovery(l),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.Concurrency),
		mdw.MaxBodyBytes(lim.MaxBodyBytes, map[string]int64{handler.PDFUploadPath: o.UploadBodyBytes}),
		mdw.Timeout(time.Duration(lim.RequestTimeout)*time.Second, map[string]time.Duration{handler.PDFUploadPath: o.UploadTimeout}),
		mdw.Metrics(),
		mdw.AccessLog(l),
		mdw.AuthJWT(jwter),
	)
	r.NoRoute(func(c *gin.Context) { resp.Abort(c, resp.CodeNotFound, "route not found") })

	// 健康检查与指标
	r.GET("/health", func(c *gin.Context) {
		if o.Ready != nil {
			if err := o.Ready(c.Request.Context()); err != nil {
				l.Warn("health check failed", zap.Error(err))
				resp.Abort(c, resp.CodeUnavailable, "not ready")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	})
	r.GET("/metrics", mdw.MetricsHandler())

	reg.MountAPI(&r.RouterGroup)
	mountAdmin(r, reg)
	return r, nil
}
