package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dukeofgo/librarius/internal/feature/user"
	"github.com/dukeofgo/librarius/internal/transport/http/ez"
)

// AdminHandler 挂在 /admin 分组下，分组已要求 admin/superuser
type AdminHandler struct {
	identity Identity
	log      *zap.Logger
}

func NewAdminHandler(identity Identity, l *zap.Logger) *AdminHandler {
	return &AdminHandler{identity: identity, log: l}
}

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, h.log)

	ez.RegisterAction(e, ez.Action[user.ListQuery, user.ListResp]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *user.ListQuery) (user.ListResp, error) {
			us, total, err := h.identity.List(c.Request.Context(), in.Offset, in.Limit, in.Q)
			if err != nil {
				return user.ListResp{}, err
			}
			out := user.ListResp{Total: total, Items: make([]user.Resp, 0, len(us))}
			for i := range us {
				out.Items = append(out.Items, user.FromDomain(&us[i]))
			}
			return out, nil
		},
	})
}
