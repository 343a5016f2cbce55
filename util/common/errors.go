package common

import (
	"errors"
	"fmt"
	"strings"
)

// =================================================================
// 错误码常量
// =================================================================

const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeExternal     = "EXTERNAL"
)

// =================================================================
// ServiceError 服务层错误包装
// =================================================================

type ServiceError struct {
	Op  string // 操作名称，如 "panel.ListInbounds"
	Err error  // 原始错误
}

func (e *ServiceError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString("[")
		sb.WriteString(e.Op)
		sb.WriteString("] ")
	}
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError 创建服务层错误
func NewServiceError(op string, err error) *ServiceError {
	return &ServiceError{
		Op:  op,
		Err: err,
	}
}

// Wrap 快速包装错误
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewServiceError(op, err)
}

// Wrapf 带格式化消息包装错误
func Wrapf(op string, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return NewServiceError(op, fmt.Errorf("%s: %w", msg, err))
}

// =================================================================
// 通用错误定义
// =================================================================

var (
	// ErrNotFound 资源未找到
	ErrNotFound = errors.New("资源未找到")

	// ErrInvalidInput 无效输入
	ErrInvalidInput = errors.New("无效输入")
)

// =================================================================
// 面板相关错误
// =================================================================

var (
	// ErrAuthentication 面板登录被拒绝或无法连接
	ErrAuthentication = errors.New("面板认证失败")

	// ErrUnauthorized 面板拒绝当前会话，需要重新登录
	ErrUnauthorized = errors.New("面板会话未授权")

	// ErrTransport 网络或连接错误
	ErrTransport = errors.New("面板网络请求失败")

	// ErrPanelRejected HTTP 非 200 或 success=false
	ErrPanelRejected = errors.New("面板拒绝请求")

	// ErrInboundNotFound 入站未找到
	ErrInboundNotFound = fmt.Errorf("入站%w", ErrNotFound)

	// ErrClientNotFound 客户端未找到
	ErrClientNotFound = fmt.Errorf("客户端%w", ErrNotFound)
)

// =================================================================
// 开通流程相关错误
// =================================================================

var (
	// ErrAlreadyProvisioned 用户已有可用链接
	ErrAlreadyProvisioned = errors.New("client already exists")

	// ErrPersistence 面板已开通但本地保存失败
	ErrPersistence = errors.New("链接保存失败")
)

// =================================================================
// Telegram Bot 相关错误
// =================================================================

var (
	// ErrTelegramInvalidToken 无效的 Telegram Token
	ErrTelegramInvalidToken = errors.New("无效的 Telegram Bot Token")
)
