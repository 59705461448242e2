// Package errs 定义业务错误类型，handle 层据 Kind 映射 HTTP 状态码.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yeisme/teamvault/pkg/plan"
)

// Kind 业务错误分类.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindGone
	KindInvalid
	KindLimitExceeded
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindGone:
		return "gone"
	case KindInvalid:
		return "invalid"
	case KindLimitExceeded:
		return "limit_exceeded"
	default:
		return "internal"
	}
}

// Error 携带分类与面向用户的信息；Err 为内部原因，不返回给调用方.
type Error struct {
	Kind    Kind
	Message string
	Limit   *plan.LimitError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Gone(msg string) error {
	return &Error{Kind: KindGone, Message: msg}
}

func Invalid(msg string) error {
	return &Error{Kind: KindInvalid, Message: msg}
}

// Internal 包装不可预期的错误，对外只暴露通用信息.
func Internal(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// Limit 将计划限额错误转换为业务错误.
func Limit(le *plan.LimitError) error {
	return &Error{Kind: KindLimitExceeded, Message: le.Message, Limit: le}
}

// FromLimit 如果 err 为 *plan.LimitError 则转换，否则原样返回.
func FromLimit(err error) error {
	var le *plan.LimitError
	if errors.As(err, &le) {
		return Limit(le)
	}

	return err
}

// KindOf 返回错误分类，非业务错误视为内部错误.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// Is 判断 err 是否为指定分类.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// HTTPStatus 返回分类对应的 HTTP 状态码.
func HTTPStatus(k Kind) int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindGone:
		return http.StatusGone
	case KindInvalid, KindLimitExceeded:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
