package common

import (
	"errors"
)

// Combine 合并多个错误，忽略 nil
func Combine(errs ...error) error {
	return errors.Join(errs...)
}

// GetErrorCode 从错误链中提取错误码，供 Bot 与 CLI 选择提示
func GetErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return ErrCodeInvalidInput
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrUnauthorized):
		return ErrCodeUnauthorized
	case errors.Is(err, ErrAlreadyProvisioned):
		return ErrCodeConflict
	case errors.Is(err, ErrTransport), errors.Is(err, ErrPanelRejected):
		return ErrCodeExternal
	default:
		return ErrCodeInternal
	}
}
