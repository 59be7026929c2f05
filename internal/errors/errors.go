package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeMissingParameter ErrCode = "MISSING_PARAMETER"
	ErrCodeUnauthorized     ErrCode = "UNAUTHORIZED"
	ErrCodeNotFound         ErrCode = "NOT_FOUND"
	ErrCodeRateLimited      ErrCode = "RATE_LIMITED"
	ErrCodeUpstreamTimeout  ErrCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamError    ErrCode = "UPSTREAM_ERROR"
	ErrCodeInternal         ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
	// ResetAt is when the upstream rate limit resets; zero if unknown
	ResetAt time.Time
	// Status is the upstream HTTP status of an upstream error; zero when no
	// response was received
	Status int
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewMissingParameterError creates a new missing parameter error
func NewMissingParameterError(param string) *AppError {
	return &AppError{
		Code:    ErrCodeMissingParameter,
		Message: fmt.Sprintf("Missing required query param: %s", param),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewRateLimitedError creates a new rate limited error. The reset time is
// included in the message when known.
func NewRateLimitedError(resetAt time.Time, err error) *AppError {
	msg := "GitHub rate limit exceeded. Resets at epoch unknown."
	if !resetAt.IsZero() {
		msg = fmt.Sprintf("GitHub rate limit exceeded. Resets at epoch %d.", resetAt.Unix())
	}
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: msg,
		Err:     err,
		ResetAt: resetAt,
	}
}

// NewUpstreamTimeoutError creates a new upstream timeout error
func NewUpstreamTimeoutError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeUpstreamTimeout,
		Message: "GitHub API request timed out.",
		Err:     err,
	}
}

// NewUpstreamError creates a new generic upstream error. A zero status means
// no HTTP response was received.
func NewUpstreamError(status int, err error) *AppError {
	msg := "GitHub API unreachable"
	if status != 0 {
		msg = fmt.Sprintf("GitHub API error %d", status)
	}
	return &AppError{
		Code:    ErrCodeUpstreamError,
		Message: msg,
		Err:     err,
		Status:  status,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternal when there is none
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeNotFound
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeRateLimited
}

// IsRetryable reports whether the failure is transient: a timeout, a 5xx
// response or no response at all. Rate limits are retryable only after the
// reset, so they are excluded here.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case ErrCodeUpstreamTimeout:
		return true
	case ErrCodeUpstreamError:
		return appErr.Status == 0 || appErr.Status >= 500
	}
	return false
}
