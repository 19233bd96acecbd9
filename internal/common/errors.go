package common

import (
	"errors"
	"fmt"
)

// AppError 应用级错误结构
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code, message string, err error) error {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewError 创建新错误
func NewError(code, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// IsCode 判断错误链中是否包含指定错误码
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// 错误码常量
const (
	ErrCodeGitHubAPI      = "GITHUB_API_ERROR"
	ErrCodeLLM            = "LLM_ERROR"
	ErrCodeParse          = "PARSE_ERROR"
	ErrCodeStorage        = "STORAGE_ERROR"
	ErrCodeDatabase       = "DATABASE_ERROR"
	ErrCodeRevisionBudget = "REVISION_BUDGET_EXCEEDED"
	ErrCodeNotification   = "NOTIFICATION_ERROR"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternal       = "INTERNAL_ERROR"
)
