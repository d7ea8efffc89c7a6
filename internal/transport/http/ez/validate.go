package ez

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/dukeofgo/librarius/internal/domain"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators 给 gin 的 validator 注册自定义 tag，并让错误信息使用 json/form 字段名
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("ez: gin validator engine is not validator/v10")
			return
		}
		v.RegisterTagNameFunc(fieldName)
		registerErr = v.RegisterValidation("book_isbn", func(fl validator.FieldLevel) bool {
			_, ok := domain.NormalizeISBN(fl.Field().String())
			return ok
		})
	})
	return registerErr
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
