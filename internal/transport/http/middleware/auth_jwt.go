package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dukeofgo/librarius/internal/core/auth"
	"github.com/dukeofgo/librarius/internal/domain"
	resp "github.com/dukeofgo/librarius/internal/transport/http/response"
)

const KeyPrincipal = "principal"

// AuthJWT 有 Bearer 就解析并放入上下文；没有则匿名放行，由路由自己决定是否要求登录
func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if ah == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(ah, "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			resp.Abort(c, resp.CodeUnauthorized, "Could not validate credentials")
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			resp.Abort(c, resp.CodeUnauthorized, "Could not validate credentials")
			return
		}
		p := claims.Principal()
		c.Set(KeyPrincipal, &p)
		c.Next()
	}
}

// RequireRole 分组级权限，roles 为空时只要求登录
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Check(Principal(c), roles...); err != nil {
			if p := Principal(c); p == nil {
				resp.Abort(c, resp.CodeUnauthorized, "Not authenticated")
				return
			}
			resp.Abort(c, resp.CodeForbidden, err.Error())
			return
		}
		c.Next()
	}
}

// Principal 当前请求的认证主体，匿名为 nil
func Principal(c *gin.Context) *domain.Principal {
	v, ok := c.Get(KeyPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*domain.Principal)
	return p
}
