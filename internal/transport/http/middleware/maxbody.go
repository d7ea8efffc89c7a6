package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	resp "github.com/dukeofgo/librarius/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小；overrides 按路由模板（c.FullPath）单独放宽，如 PDF 上传
func MaxBodyBytes(n int64, overrides map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := n
		if v, ok := overrides[c.FullPath()]; ok {
			limit = v
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
		if c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			var mbe *http.MaxBytesError
			if errors.As(e.Err, &mbe) {
				resp.Abort(c, resp.CodeTooLarge, "request body too large")
				return
			}
		}
	}
}
