package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidArgument = "invalid_argument"
	ErrCodeNotFound        = "not_found"
	ErrCodeUnavailable     = "unavailable"
	ErrCodeInternal        = "internal"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeNoSession       = "no_session"
)

var (
	ErrInvalidArgument = &CoreError{Code: ErrCodeInvalidArgument, Message: "invalid argument"}
	ErrNotFound        = &CoreError{Code: ErrCodeNotFound, Message: "not found"}
	ErrUnavailable     = &CoreError{Code: ErrCodeUnavailable, Message: "unavailable"}
	ErrInternal        = &CoreError{Code: ErrCodeInternal, Message: "internal error"}
	ErrRateLimited     = &CoreError{Code: ErrCodeRateLimited, Message: "rate limited"}
	ErrNoSession       = &CoreError{Code: ErrCodeNoSession, Message: "no active session"}
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a CoreError with the same code, so that
// errors.Is(err, ErrNotFound) matches any not_found error.
func (e *CoreError) Is(target error) bool {
	var t *CoreError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// ErrorCode returns the domain code carried by err, or ErrCodeInternal.
func ErrorCode(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternal
}
