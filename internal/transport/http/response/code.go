package response

// 业务错误码（直接沿用 HTTP 语义），body 中的 code 为稳定的机器可读值
const (
	CodeOK          = 0
	CodeBadRequest  = 400 // 校验失败
	CodeNotFound    = 404
	CodeConflict    = 409
	CodeServerError = 500 // 存储层 / 内部错误
	CodeTimeout     = 504
)

var CodeMsgMap = map[int]string{
	CodeOK:          "OK",
	CodeBadRequest:  "Bad Request",
	CodeNotFound:    "Not Found",
	CodeConflict:    "Conflict",
	CodeServerError: "Internal Server Error",
	CodeTimeout:     "Timeout",
}
