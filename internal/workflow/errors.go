package workflow

import (
	"errors"
	"fmt"
)

// Kind 对应错误分类，处理器据此映射 HTTP 状态码。
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
)

// Error 是工作流层统一的业务错误，Message 可直接下发给调用方。
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf 返回错误的分类，非业务错误一律视为内部错误。
func KindOf(err error) Kind {
	var wErr *Error
	if errors.As(err, &wErr) {
		return wErr.Kind
	}
	return KindInternal
}

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func internal(msg string, cause error) error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}
