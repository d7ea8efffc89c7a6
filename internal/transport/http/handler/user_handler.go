package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/feature/book"
	"github.com/dukeofgo/librarius/internal/feature/user"
	"github.com/dukeofgo/librarius/internal/service"
	"github.com/dukeofgo/librarius/internal/transport/http/ez"
	mdw "github.com/dukeofgo/librarius/internal/transport/http/middleware"
)

type UserHandler struct {
	identity Identity
	log      *zap.Logger
}

func NewUserHandler(identity Identity, l *zap.Logger) *UserHandler {
	return &UserHandler{identity: identity, log: l}
}

func (h *UserHandler) Priority() int { return 10 }

func (h *UserHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.log)
	owner := func(c *gin.Context) string { return c.Param("email") }

	ez.RegisterAction(e, ez.Action[user.RegisterReq, user.Resp]{
		Method: http.MethodPost,
		Path:   "/users/create",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *user.RegisterReq) (user.Resp, error) {
			u, err := h.identity.Register(c.Request.Context(), service.Registration{
				Email:    in.Email,
				Name:     in.Name,
				Age:      in.Age,
				Password: in.Password,
			})
			if err != nil {
				return user.Resp{}, err
			}
			return user.FromDomain(u), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, user.Metadata]{
		Method: http.MethodGet,
		Path:   "/users/metadata",
		Roles:  domain.AnyRole,
		Handler: func(c *gin.Context, _ *struct{}) (user.Metadata, error) {
			p := mdw.Principal(c)
			return user.Metadata{Email: p.Email, Scope: p.Role, IsAuth: true}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, user.Resp]{
		Method: http.MethodGet,
		Path:   "/users/retrieve/:email",
		Roles:  domain.AnyRole,
		Owner:  owner,
		Handler: func(c *gin.Context, _ *struct{}) (user.Resp, error) {
			u, err := h.identity.Get(c.Request.Context(), c.Param("email"))
			if err != nil {
				return user.Resp{}, err
			}
			return user.FromDomain(u), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, user.BorrowedResp]{
		Method: http.MethodGet,
		Path:   "/users/retrieve/:email/books",
		Roles:  domain.AnyRole,
		Owner:  owner,
		Handler: func(c *gin.Context, _ *struct{}) (user.BorrowedResp, error) {
			books, err := h.identity.BorrowedBooks(c.Request.Context(), c.Param("email"))
			if err != nil {
				return user.BorrowedResp{}, err
			}
			return user.BorrowedResp{Email: c.Param("email"), BorrowedBooks: book.FromDomainList(books)}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[user.UpdateReq, user.Resp]{
		Method: http.MethodPatch,
		Path:   "/users/update/:email",
		Binder: ez.BindStrictJSON,
		Roles:  domain.AnyRole,
		Owner:  owner,
		Handler: func(c *gin.Context, in *user.UpdateReq) (user.Resp, error) {
			u, err := h.identity.Update(c.Request.Context(), *mdw.Principal(c), c.Param("email"), in.Patch())
			if err != nil {
				return user.Resp{}, err
			}
			return user.FromDomain(u), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, book.Message]{
		Method: http.MethodDelete,
		Path:   "/users/delete/:email",
		Roles:  domain.AnyRole,
		Owner:  owner,
		Handler: func(c *gin.Context, _ *struct{}) (book.Message, error) {
			if err := h.identity.Delete(c.Request.Context(), c.Param("email")); err != nil {
				return book.Message{}, err
			}
			return book.Message{Message: "User deleted successfully"}, nil
		},
	})
}
