// Package ez 一行注册非 CRUD 接口：绑定 → 鉴权 → 执行 → 统一错误映射
package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dukeofgo/librarius/internal/core/auth"
	"github.com/dukeofgo/librarius/internal/domain"
	mdw "github.com/dukeofgo/librarius/internal/transport/http/middleware"
	resp "github.com/dukeofgo/librarius/internal/transport/http/response"
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// Group 子路径共享同一个 logger
func (e EZ) Group(path string) EZ { return EZ{g: e.g.Group(path), log: e.log} }

// AErr 显式指定状态码的错误
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func NotFound(msg string) error   { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// Action I 入参，O 出参
type Action[I any, O any] struct {
	Method string
	Path   string
	Binder Binder
	// Auth 要求登录；Roles 非空时隐含 Auth
	Auth  bool
	Roles []domain.Role
	// Owner 返回资源所属邮箱；非管理员只能操作自己的资源
	Owner func(c *gin.Context) string
	// Status 成功时的状态码，默认 200
	Status  int
	Handler func(c *gin.Context, in *I) (O, error)
	// Raw 由 Handler 自己写响应（文件流等），不再包 Resp
	Raw bool
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		// 1) 鉴权/角色/归属
		if a.Auth || len(a.Roles) > 0 || a.Owner != nil {
			p := mdw.Principal(c)
			if err := auth.Check(p, a.Roles...); err != nil {
				e.Fail(c, err)
				return
			}
			if a.Owner != nil {
				if err := auth.ConfirmOwnership(p, a.Owner(c)); err != nil {
					e.Fail(c, err)
					return
				}
			}
		}

		// 2) 绑定入参
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			e.Fail(c, err)
			return
		}

		// 3) 执行
		out, err := a.Handler(c, &in)
		if err != nil {
			e.Fail(c, err)
			return
		}
		if a.Raw {
			return
		}
		resp.JSON(c, status, out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

// Fail 统一错误映射：领域错误按 kind 给状态码，其余记日志后返回 500
func (e EZ) Fail(c *gin.Context, err error) {
	code, detail := Classify(err)
	if code >= resp.CodeServerError {
		e.log.Error("request failed",
			zap.String("rid", c.GetString(mdw.KeyRequestID)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	if code == resp.CodeUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	resp.Abort(c, code, detail)
}

// Classify 错误 → (状态码, 面向客户端的说明)
func Classify(err error) (int, string) {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae.Code, ae.Error()
	}
	var be *bindError
	if errors.As(err, &be) {
		return be.code, be.Error()
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return resp.CodeBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return resp.CodeUnauthorized, err.Error()
		}
		return resp.CodeUnauthorized, "Not authenticated"
	case errors.Is(err, domain.ErrForbidden):
		return resp.CodeForbidden, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return resp.CodeNotFound, err.Error()
	case errors.Is(err, domain.ErrConflict):
		return resp.CodeConflict, err.Error()
	case errors.Is(err, domain.ErrUpstream):
		// 上游查询失败直接告诉调用方，不重试
		return resp.CodeBadRequest, err.Error()
	case errors.Is(err, domain.ErrStorage):
		return resp.CodeServerError, err.Error()
	}
	return resp.CodeServerError, "internal error"
}
