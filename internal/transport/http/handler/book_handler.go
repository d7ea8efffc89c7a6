package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/feature/book"
	"github.com/dukeofgo/librarius/internal/service"
	"github.com/dukeofgo/librarius/internal/transport/http/ez"
)

// PDFUploadPath 路由模板，入口中间件据此放宽请求体与超时
const PDFUploadPath = "/books/upload/bookpdf/:id"

type BookHandler struct {
	catalog    Catalog
	lending    Lending
	presignTTL time.Duration
	log        *zap.Logger
}

func NewBookHandler(catalog Catalog, lending Lending, presignTTL time.Duration, l *zap.Logger) *BookHandler {
	return &BookHandler{catalog: catalog, lending: lending, presignTTL: presignTTL, log: l}
}

func (h *BookHandler) Priority() int { return 20 }

func (h *BookHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.log)

	ez.RegisterAction(e, ez.Action[book.CreateReq, book.Resp]{
		Method: http.MethodPost,
		Path:   "/books/create",
		Binder: ez.BindJSON,
		Roles:  domain.Elevated,
		Handler: func(c *gin.Context, in *book.CreateReq) (book.Resp, error) {
			b, err := h.catalog.Create(c.Request.Context(), in.Book())
			if err != nil {
				return book.Resp{}, err
			}
			return book.FromDomain(b), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, book.Resp]{
		Method: http.MethodPost,
		Path:   "/books/create/:isbn",
		Roles:  domain.Elevated,
		Handler: func(c *gin.Context, _ *struct{}) (book.Resp, error) {
			b, err := h.catalog.CreateFromLookup(c.Request.Context(), c.Param("isbn"))
			if err != nil {
				return book.Resp{}, err
			}
			return book.FromDomain(b), nil
		},
	})

	ez.RegisterAction(e, ez.Action[book.ListQuery, book.ListResp]{
		Method: http.MethodGet,
		Path:   "/books/retrieve/books",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *book.ListQuery) (book.ListResp, error) {
			books, total, err := h.catalog.List(c.Request.Context(), in.Skip, in.Limit)
			if err != nil {
				return book.ListResp{}, err
			}
			skip, limit := service.ClampPage(in.Skip, in.Limit)
			return book.ListResp{Total: total, Skip: skip, Limit: limit, Items: book.FromDomainList(books)}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, book.Resp]{
		Method: http.MethodGet,
		Path:   "/books/retrieve/:isbnOrId",
		Roles:  domain.AnyRole,
		Handler: func(c *gin.Context, _ *struct{}) (book.Resp, error) {
			b, err := h.catalog.Get(c.Request.Context(), c.Param("isbnOrId"))
			if err != nil {
				return book.Resp{}, err
			}
			return book.FromDomain(b), nil
		},
	})

	ez.RegisterAction(e, ez.Action[book.UpdateReq, book.Resp]{
		Method: http.MethodPatch,
		Path:   "/books/update/:id",
		Binder: ez.BindStrictJSON,
		Roles:  domain.Elevated,
		Handler: func(c *gin.Context, in *book.UpdateReq) (book.Resp, error) {
			id, err := ez.UintParam(c, "id")
			if err != nil {
				return book.Resp{}, err
			}
			b, err := h.catalog.Update(c.Request.Context(), id, in.Patch())
			if err != nil {
				return book.Resp{}, err
			}
			return book.FromDomain(b), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, book.Message]{
		Method: http.MethodDelete,
		Path:   "/books/delete/:id",
		Roles:  domain.AnyRole,
		Handler: func(c *gin.Context, _ *struct{}) (book.Message, error) {
			id, err := ez.UintParam(c, "id")
			if err != nil {
				return book.Message{}, err
			}
			if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
				return book.Message{}, err
			}
			return book.Message{Message: "Book deleted successfully"}, nil
		},
	})

	h.mountLending(e)
	h.mountFiles(e)
}

// 借还：路径里的 email 必须是本人（管理员除外）
func (h *BookHandler) mountLending(e ez.EZ) {
	owner := func(c *gin.Context) string { return c.Param("email") }
	for _, r := range []struct {
		path string
		op   func(*gin.Context, uint, string) (*domain.Book, error)
	}{
		{"/books/borrow/:email/:id", func(c *gin.Context, id uint, email string) (*domain.Book, error) {
			return h.lending.Borrow(c.Request.Context(), id, email)
		}},
		{"/books/return/:email/:id", func(c *gin.Context, id uint, email string) (*domain.Book, error) {
			return h.lending.Return(c.Request.Context(), id, email)
		}},
	} {
		op := r.op
		ez.RegisterAction(e, ez.Action[struct{}, book.Resp]{
			Method: http.MethodPatch,
			Path:   r.path,
			Roles:  domain.AnyRole,
			Owner:  owner,
			Handler: func(c *gin.Context, _ *struct{}) (book.Resp, error) {
				id, err := ez.UintParam(c, "id")
				if err != nil {
					return book.Resp{}, err
				}
				b, err := op(c, id, c.Param("email"))
				if err != nil {
					return book.Resp{}, err
				}
				return book.FromDomain(b), nil
			},
		})
	}
}

func (h *BookHandler) mountFiles(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[struct{}, book.Message]{
		Method: http.MethodPatch,
		Path:   "/books/update/cover/:id",
		Roles:  domain.AnyRole,
		Handler: func(c *gin.Context, _ *struct{}) (book.Message, error) {
			id, err := ez.UintParam(c, "id")
			if err != nil {
				return book.Message{}, err
			}
			fh, err := c.FormFile("cover_img")
			if err != nil {
				return book.Message{}, ez.BadRequest("cover_img file is required")
			}
			f, err := fh.Open()
			if err != nil {
				return book.Message{}, ez.Internal("open upload", err)
			}
			defer f.Close()
			img, err := io.ReadAll(f)
			if err != nil {
				return book.Message{}, ez.BadRequest("read cover_img failed")
			}
			if err := h.catalog.SetCover(c.Request.Context(), id, img); err != nil {
				return book.Message{}, err
			}
			return book.Message{Message: "success upload"}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, struct{}]{
		Method: http.MethodGet,
		Path:   "/books/retrieve/cover/:id",
		Roles:  domain.AnyRole,
		Raw:    true,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			id, err := ez.UintParam(c, "id")
			if err != nil {
				return struct{}{}, err
			}
			img, ct, err := h.catalog.Cover(c.Request.Context(), id)
			if err != nil {
				return struct{}{}, err
			}
			c.Data(http.StatusOK, ct, img)
			return struct{}{}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, book.Message]{
		Method: http.MethodPost,
		Path:   PDFUploadPath,
		Roles:  domain.Elevated,
		Handler: func(c *gin.Context, _ *struct{}) (book.Message, error) {
			id, err := ez.UintParam(c, "id")
			if err != nil {
				return book.Message{}, err
			}
			fh, err := c.FormFile("pdf_file")
			if err != nil {
				return book.Message{}, ez.BadRequest("pdf_file is required")
			}
			f, err := fh.Open()
			if err != nil {
				return book.Message{}, ez.Internal("open upload", err)
			}
			defer f.Close()
			b, err := h.catalog.UploadPDF(c.Request.Context(), id, f, fh.Size, fh.Header.Get("Content-Type"))
			if err != nil {
				return book.Message{}, err
			}
			return book.Message{Message: fmt.Sprintf("File uploaded successfully %s", b.ISBN)}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, book.URL]{
		Method: http.MethodGet,
		Path:   "/books/retrieve/bookpdf/:isbn",
		Roles:  domain.Elevated,
		Handler: func(c *gin.Context, _ *struct{}) (book.URL, error) {
			u, err := h.catalog.PDFURL(c.Request.Context(), c.Param("isbn"))
			if err != nil {
				return book.URL{}, err
			}
			return book.URL{URL: u, ExpiresIn: int(h.presignTTL.Seconds())}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, book.URL]{
		Method: http.MethodGet,
		Path:   "/books/retrieve/staticfile/:filename",
		Handler: func(c *gin.Context, _ *struct{}) (book.URL, error) {
			u, err := h.catalog.StaticURL(c.Request.Context(), c.Param("filename"))
			if err != nil {
				return book.URL{}, err
			}
			return book.URL{URL: u, ExpiresIn: int(h.presignTTL.Seconds())}, nil
		},
	})
}
