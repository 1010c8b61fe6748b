// Package errs 定义了业务层统一使用的错误类型。
// 每个业务操作要么成功，要么返回以下四种错误之一，调用方按 Kind 分支处理。
package errs

import (
	"errors"
	"fmt"
)

// Kind 表示错误的类别。
type Kind int

const (
	// KindUnknown 表示非业务错误（基础设施故障等）。
	KindUnknown Kind = iota
	// KindBadRequest 当前状态下的输入不合法或冲突。
	KindBadRequest
	// KindNotFound 引用了不存在的实体。
	KindNotFound
	// KindPermissionDenied 会话状态或授权不满足。
	KindPermissionDenied
	// KindLLM 补全服务调用失败。
	KindLLM
)

// String 返回 Kind 的可读名称。
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindLLM:
		return "llm_error"
	default:
		return "unknown"
	}
}

// Error 是携带 Kind 的业务错误。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest 创建一个 KindBadRequest 错误。
func BadRequest(format string, args ...interface{}) error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound 创建一个 KindNotFound 错误。
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// PermissionDenied 创建一个 KindPermissionDenied 错误。
func PermissionDenied(format string, args ...interface{}) error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

// LLM 包装补全服务返回的底层错误，不做任何解释。
func LLM(err error) error {
	return &Error{Kind: KindLLM, Message: "completion failed", Err: err}
}

// KindOf 返回 err 链上第一个 *Error 的 Kind。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is 判断 err 是否属于指定 Kind。
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
