package ez

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	resp "github.com/dukeofgo/librarius/internal/transport/http/response"
)

type Binder string

const (
	BindNone       Binder = "none"        // 不绑定，自己从 c.Param / c.FormFile 取
	BindJSON       Binder = "json"        // JSON，忽略未知字段
	BindStrictJSON Binder = "strict_json" // JSON，未知字段报 400（局部更新用）
	BindQuery      Binder = "query"       // URL ?a=b
	BindForm       Binder = "form"        // application/x-www-form-urlencoded
)

// strictJSON 局部更新拒绝拼错的字段名，否则会被静默忽略
var strictJSON = jsoniter.Config{
	EscapeHTML:            true,
	DisallowUnknownFields: true,
}.Froze()

type bindError struct {
	code int
	msg  string
}

func (e *bindError) Error() string { return e.msg }

func badInput(format string, args ...any) error {
	return &bindError{code: resp.CodeBadRequest, msg: fmt.Sprintf(format, args...)}
}

func bind(c *gin.Context, b Binder, obj any) error {
	var err error
	switch b {
	case BindJSON:
		err = c.ShouldBindJSON(obj)
	case BindStrictJSON:
		err = bindStrictJSON(c, obj)
	case BindQuery:
		err = c.ShouldBindQuery(obj)
	case BindForm:
		err = c.ShouldBindWith(obj, binding.Form)
	default:
		return nil
	}
	return describe(err)
}

func bindStrictJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return badInput("request body is empty")
	}
	if err := strictJSON.NewDecoder(c.Request.Body).Decode(obj); err != nil {
		if errors.Is(err, io.EOF) {
			return badInput("request body is empty")
		}
		return err
	}
	return binding.Validator.ValidateStruct(obj)
}

// describe 把绑定/校验错误整理成客户端可读的 400/413
func describe(err error) error {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, describeField(fe))
		}
		return badInput("%s", strings.Join(msgs, "; "))
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
		return &bindError{code: resp.CodeTooLarge, msg: "request body too large"}
	}
	if errors.Is(err, io.EOF) {
		return badInput("request body is empty")
	}
	return badInput("invalid request: %s", err.Error())
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "book_isbn":
		return fe.Field() + " must be 10 or 13 digits"
	case "min", "max", "oneof":
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
}

// UintParam 路径参数转正整数 id
func UintParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	n, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || n == 0 {
		return 0, badInput("%s must be a positive integer", name)
	}
	return uint(n), nil
}
