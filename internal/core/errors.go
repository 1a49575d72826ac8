package core

import (
	"errors"
	"fmt"
	"net/url"
)

// Error codes
const (
	ErrCodeMissingAPIKey      = "CONFIG_MISSING_API_KEY"
	ErrCodeCompletionFailed   = "COMPLETION_FAILED"
	ErrCodeEmptyCompletion    = "EMPTY_COMPLETION"
	ErrCodeHistoryUnavailable = "HISTORY_UNAVAILABLE"
)

// AppError carries an error code, a human-readable message and an optional cause.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorf creates a new application error with a formatted message
func NewAppErrorf(code string, cause error, format string, args ...any) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// ErrMissingAPIKey is returned when OPENAI_API_KEY is absent or blank.
func ErrMissingAPIKey() *AppError {
	return NewAppErrorf(ErrCodeMissingAPIKey, nil, "%s is not set", EnvAPIKey)
}

// ErrCompletionFailed wraps an error raised by the completion service.
func ErrCompletionFailed(cause error) *AppError {
	return NewAppError(ErrCodeCompletionFailed, "chat completion request failed", cause)
}

// ErrEmptyCompletion is returned when the service replies without candidates.
func ErrEmptyCompletion() *AppError {
	return NewAppError(ErrCodeEmptyCompletion, EmptyCompletionDescription, nil)
}

// ErrHistoryUnavailable wraps a history store failure.
func ErrHistoryUnavailable(backend string, cause error) *AppError {
	return NewAppErrorf(ErrCodeHistoryUnavailable, cause, "%s history store unavailable", backend)
}

// ErrorCode returns the code of the first AppError in err's chain, or "".
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Describe returns the message shown to the user for err. A wrapped cause is
// reported by its own message, without the method and URL of a *url.Error.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			return appErr.Cause.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
