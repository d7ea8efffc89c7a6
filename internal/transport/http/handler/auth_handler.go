package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/feature/user"
	"github.com/dukeofgo/librarius/internal/transport/http/ez"
	mdw "github.com/dukeofgo/librarius/internal/transport/http/middleware"
)

// AuthHandler OAuth2 password 流程：/auth/token 与 /auth/refresh
type AuthHandler struct {
	identity Identity
	tokens   Tokens
	loginRPS rate.Limit
	log      *zap.Logger
}

func NewAuthHandler(identity Identity, tokens Tokens, loginRPS rate.Limit, l *zap.Logger) *AuthHandler {
	if loginRPS <= 0 {
		loginRPS = 1
	}
	return &AuthHandler{identity: identity, tokens: tokens, loginRPS: loginRPS, log: l}
}

func (h *AuthHandler) Priority() int { return 0 }

func (h *AuthHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g.Group("/auth", mdw.RateLimitPerIP(h.loginRPS, 5)), h.log)

	// 令牌响应不套统一 Resp，兼容标准 OAuth2 客户端
	ez.RegisterAction(e, ez.Action[user.TokenReq, struct{}]{
		Method: http.MethodPost,
		Path:   "/token",
		Binder: ez.BindForm,
		Raw:    true,
		Handler: func(c *gin.Context, in *user.TokenReq) (struct{}, error) {
			u, err := h.identity.Authenticate(c.Request.Context(), in.Username, in.Password)
			if err != nil {
				return struct{}{}, err
			}
			return struct{}{}, h.issue(c, u)
		},
	})

	ez.RegisterAction(e, ez.Action[user.RefreshReq, struct{}]{
		Method: http.MethodPost,
		Path:   "/refresh",
		Binder: ez.BindJSON,
		Raw:    true,
		Handler: func(c *gin.Context, in *user.RefreshReq) (struct{}, error) {
			claims, err := h.tokens.ParseRefresh(in.RefreshToken)
			if err != nil {
				return struct{}{}, domain.ErrUnauthorized
			}
			// 角色以库里为准，令牌签发后可能被改过
			u, err := h.identity.Get(c.Request.Context(), claims.Email)
			if errors.Is(err, domain.ErrUserNotFound) {
				return struct{}{}, domain.ErrUnauthorized
			}
			if err != nil {
				return struct{}{}, err
			}
			if !u.IsActive {
				return struct{}{}, domain.ErrInactiveUser
			}
			return struct{}{}, h.issue(c, u)
		},
	})
}

func (h *AuthHandler) issue(c *gin.Context, u *domain.User) error {
	pair, err := h.tokens.IssuePair(u.Email, u.Status)
	if err != nil {
		return ez.Internal("issue token failed", err)
	}
	c.JSON(http.StatusOK, pair)
	return nil
}
