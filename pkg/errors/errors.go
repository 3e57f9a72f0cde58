package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork            ErrorType = "network"
	ErrorTypeRateLimit          ErrorType = "rate_limit"
	ErrorTypeServerError        ErrorType = "server_error"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeParsing            ErrorType = "parsing"
	ErrorTypeProfileNotFound    ErrorType = "profile_not_found"
	ErrorTypeEnumerationParse   ErrorType = "enumeration_parse"
	ErrorTypeContentUnavailable ErrorType = "content_unavailable"
	ErrorTypeInvalidTarget      ErrorType = "invalid_target"
	ErrorTypeUnknownContentType ErrorType = "unknown_content_type"
	ErrorTypeFilesystem         ErrorType = "filesystem"
	ErrorTypeInvalidArgument    ErrorType = "invalid_argument"
	ErrorTypeCancelled          ErrorType = "cancelled"
	ErrorTypeUnknown            ErrorType = "unknown"
)

// Sentinels for errors.Is comparisons. Matching is by Type only.
var (
	ErrParsing            = &Error{Type: ErrorTypeParsing}
	ErrProfileNotFound    = &Error{Type: ErrorTypeProfileNotFound}
	ErrEnumerationParse   = &Error{Type: ErrorTypeEnumerationParse}
	ErrContentUnavailable = &Error{Type: ErrorTypeContentUnavailable}
	ErrInvalidTarget      = &Error{Type: ErrorTypeInvalidTarget}
	ErrUnknownContentType = &Error{Type: ErrorTypeUnknownContentType}
	ErrInvalidArgument    = &Error{Type: ErrorTypeInvalidArgument}
)

// Error represents a pipeline error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

// New creates a typed error.
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error carrying cause.
func Wrap(t ErrorType, cause error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// TypeOf returns the ErrorType of the first *Error in err's chain.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	if stderrors.Is(err, context.Canceled) {
		return ErrorTypeCancelled
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return ErrorTypeNetwork
	}
	return ErrorTypeUnknown
}

// IsTransient reports whether err is a recoverable network condition
// (timeout, reset, throttling, 5xx). Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var e *Error
	if stderrors.As(err, &e) {
		return IsRetryable(e.Type)
	}
	var netErr net.Error
	return stderrors.As(err, &netErr)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// FromStatusCode maps a non-2xx HTTP status to a typed error. notFound is
// the type reported for 404, which differs per resource.
func FromStatusCode(statusCode int, notFound ErrorType, url string) *Error {
	switch {
	case statusCode == 404:
		return New(notFound, statusCode, "resource not found: %s", url)
	case statusCode == 429:
		return New(ErrorTypeRateLimit, statusCode, "rate limited by %s", url)
	case statusCode >= 500:
		return New(ErrorTypeServerError, statusCode, "server error from %s", url)
	default:
		return New(ErrorTypeUnknown, statusCode, "unexpected status from %s", url)
	}
}
