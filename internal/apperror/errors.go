package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Status is the HTTP status code the kind is served with.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the typed failure every component returns. Code is machine
// readable, Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	if code == "" {
		code = "VALIDATION_ERROR"
	}
	return New(KindValidation, code, message)
}

func Unauthorized(code, message string) *Error {
	if code == "" {
		code = "UNAUTHORIZED"
	}
	return New(KindUnauthorized, code, message)
}

func Forbidden(code, message string) *Error {
	if code == "" {
		code = "FORBIDDEN"
	}
	return New(KindForbidden, code, message)
}

func NotFound(resource string) *Error {
	return New(KindNotFound, "NOT_FOUND", resource+" not found")
}

func Conflict(code, message string) *Error {
	if code == "" {
		code = "CONFLICT"
	}
	return New(KindConflict, code, message)
}

func TooManyRequests(message string) *Error {
	return New(KindTooManyRequests, "TOO_MANY_REQUESTS", message)
}

func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Code: "SERVICE_UNAVAILABLE", Message: message, Err: err}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: message, Err: err}
}

// As extracts an *Error from err, wrapping anything unknown as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}

func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// FromDB translates storage errors into the closest kind. The gorm
// connection must be opened with TranslateError enabled.
func FromDB(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(resource)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConflict, Code: "CONFLICT", Message: resource + " already exists", Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "Referenced resource does not exist", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return Unavailable("Database did not respond in time", err)
	default:
		var appErr *Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return Internal("Database operation failed", err)
	}
}
