package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	resp "github.com/dukeofgo/librarius/internal/transport/http/response"
)

// Timeout 给请求上下文加超时；overrides 按路由模板放宽（大文件上传）
func Timeout(d time.Duration, overrides map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := d
		if v, ok := overrides[c.FullPath()]; ok {
			limit = v
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), limit)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			resp.Abort(c, resp.CodeTimeout, "timeout")
		}
	}
}
