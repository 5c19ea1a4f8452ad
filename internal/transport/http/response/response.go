package response

import "go-gin-user-admin/internal/listing"

type Resp struct {
	Code       int           `json:"code"`
	Msg        string        `json:"msg"`
	Data       interface{}   `json:"data"`
	Pagination *listing.Page `json:"pagination,omitempty"`
}

// Pager 分页结果（listing.Result 实现）
type Pager interface {
	PageItems() any
	PageMeta() listing.Page
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Paged data 为列表，分页信息放在顶层 pagination
func Paged(p Pager) Resp {
	r := New(CodeOK, CodeMsgMap[CodeOK], p.PageItems())
	meta := p.PageMeta()
	r.Pagination = &meta
	return r
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}
