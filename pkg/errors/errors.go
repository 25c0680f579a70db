// Package errors 提供统一错误辅助，不依赖 internal
package errors

import (
	"errors"
	"fmt"
)

// 常用哨兵错误（可按需扩展错误码）
var (
	ErrNotFound = errors.New("not found")
	// ErrValidation 调用方参数错误（空 label、非法 role、空 session 等），重发修正后的调用即可恢复
	ErrValidation = errors.New("validation failed")
	// ErrMissingConfig LLM Provider 未配置（缺 API Key 等）
	ErrMissingConfig = errors.New("missing configuration")
	// ErrEmptyResponse 上游 LLM 返回空结果
	ErrEmptyResponse = errors.New("empty response")
)

// Validationf 创建带消息的 ErrValidation
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsValidation 判断是否为调用方参数错误
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
