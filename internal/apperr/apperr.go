package apperr

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 用于统一管理对外暴露的错误，包含错误码和错误消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// WithMessage 替换用户可见消息（例如携带失败原因）
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeTokenInvalid = 10003
	CodeTokenExpired = 10004
	CodeUnauthorized = 10005

	// 参数相关 11000-11999
	CodeInvalidParams = 11002

	// 房间相关 13000-13999
	CodeRoomUnavailable = 13001
	CodeDenied          = 13002
	CodeSeatContention  = 13003
	CodePrecondition    = 13004
	CodeRoomBusy        = 13005
	CodeTooManyRooms    = 13006

	// 系统错误 50000-50999
	CodeServerError = 50001
)

// ============== 预定义错误 ==============

// 认证相关
var (
	ErrTokenInvalid = NewError(CodeTokenInvalid, "Token 无效")
	ErrTokenExpired = NewError(CodeTokenExpired, "Token 已过期")
	ErrUnauthorized = NewError(CodeUnauthorized, "未登录")
)

// 参数相关
var (
	ErrInvalidParams = NewError(CodeInvalidParams, "参数校验失败")
)

// 房间相关
var (
	ErrRoomUnavailable = NewError(CodeRoomUnavailable, "房间不可用")
	ErrDenied          = NewError(CodeDenied, "无权执行该操作")
	ErrSeatContention  = NewError(CodeSeatContention, "座位已被占用")
	ErrPrecondition    = NewError(CodePrecondition, "当前状态不允许该操作")
	ErrRoomBusy        = NewError(CodeRoomBusy, "房间正忙，请稍后重试")
	ErrTooManyRooms    = NewError(CodeTooManyRooms, "房间数量已达上限")
)

// 系统相关
var (
	ErrServerError = NewError(CodeServerError, "服务器内部错误")
)
