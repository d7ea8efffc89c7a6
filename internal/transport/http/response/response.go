package response

import "github.com/gin-gonic/gin"

// Resp 统一响应体；失败时 detail 为面向客户端的具体原因
type Resp struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data any) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error 失败响应；detail 为空时用默认文案
func Error(code int, detail string) Resp {
	r := New(code, CodeMsgMap[code], struct{}{})
	r.Detail = detail
	if r.Detail == "" {
		r.Detail = r.Msg
	}
	return r
}

func JSON(c *gin.Context, status int, data any) {
	c.JSON(status, OK(data))
}

// Abort 中断链路并写错误响应
func Abort(c *gin.Context, code int, detail string) {
	c.AbortWithStatusJSON(HTTPStatus(code), Error(code, detail))
}
