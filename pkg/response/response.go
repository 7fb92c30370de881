package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sudooom.grimoire/internal/apperr"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 错误码常量（使用 apperr 包的定义）
const (
	CodeSuccess = apperr.CodeSuccess

	// 认证相关 10000-10999
	CodeTokenInvalid = apperr.CodeTokenInvalid
	CodeTokenExpired = apperr.CodeTokenExpired
	CodeUnauthorized = apperr.CodeUnauthorized

	// 参数相关 11000-11999
	CodeInvalidParams = apperr.CodeInvalidParams

	// 房间相关 13000-13999
	CodeRoomUnavailable = apperr.CodeRoomUnavailable
	CodeDenied          = apperr.CodeDenied
	CodeSeatContention  = apperr.CodeSeatContention
	CodePrecondition    = apperr.CodePrecondition
	CodeRoomBusy        = apperr.CodeRoomBusy
	CodeTooManyRooms    = apperr.CodeTooManyRooms

	// 系统错误 50000-50999
	CodeServerError = apperr.CodeServerError
)

var codeMessages = map[int]string{
	CodeSuccess:         "success",
	CodeTokenInvalid:    "Token 无效",
	CodeTokenExpired:    "Token 已过期",
	CodeUnauthorized:    "未登录",
	CodeInvalidParams:   "参数校验失败",
	CodeRoomUnavailable: "房间不可用",
	CodeDenied:          "无权执行该操作",
	CodeSeatContention:  "座位已被占用",
	CodePrecondition:    "当前状态不允许该操作",
	CodeRoomBusy:        "房间正忙，请稍后重试",
	CodeTooManyRooms:    "房间数量已达上限",
	CodeServerError:     "服务器内部错误",
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int) {
	message := codeMessages[code]
	if message == "" {
		message = "unknown error"
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorWithMsg 错误响应（自定义消息）
func ErrorWithMsg(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorWithData 错误响应并携带数据（例如意图处理结果）
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// ErrorFromAppError 从 AppError 生成错误响应
func ErrorFromAppError(c *gin.Context, err error) {
	c.JSON(http.StatusOK, Response{
		Code:    apperr.GetCode(err),
		Message: apperr.GetMessage(err),
		Data:    nil,
	})
}

// Unauthorized 未认证
func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeTokenInvalid,
		Message: codeMessages[CodeTokenInvalid],
		Data:    nil,
	})
}
