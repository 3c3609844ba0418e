package common

import (
	"errors"
	"fmt"
	"time"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

// Provider error taxonomy. RateLimited and Transient are retried (with
// different backoff); Malformed is surfaced immediately because it indicates a
// provider/schema mismatch rather than a transient condition.
var (
	ErrRateLimited       = errors.New("provider rate limited")
	ErrTransientProvider = errors.New("transient provider error")
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrAnalysisTimedOut  = errors.New("analysis timed out")
	ErrProductNotFound   = errors.New("product not found")
)

// ErrorClass is the coarse classification driving retry policy.
type ErrorClass string

const (
	ClassRateLimited ErrorClass = "RATE_LIMITED"
	ClassMalformed   ErrorClass = "MALFORMED"
	ClassOther       ErrorClass = "OTHER"
)

// Classify buckets an error for backoff selection and attempt diagnostics.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrRateLimited):
		return ClassRateLimited
	case errors.Is(err, ErrMalformedResponse):
		return ClassMalformed
	default:
		return ClassOther
	}
}

// ClassifyHTTPStatus maps a provider HTTP status to the taxonomy.
// 429 is rate limiting, 5xx is transient; anything else non-2xx is surfaced
// as malformed/mismatched contract and not retried.
func ClassifyHTTPStatus(status int, body string) error {
	switch {
	case status == 429:
		return fmt.Errorf("%w: status 429: %s", ErrRateLimited, truncateErr(body))
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrTransientProvider, status, truncateErr(body))
	default:
		return fmt.Errorf("%w: status %d: %s", ErrMalformedResponse, status, truncateErr(body))
	}
}

// ExhaustedRetriesError reports that all attempts against one provider failed.
// The last error is preserved (not swallowed) for errors.Is/As.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// AttemptRecord captures one provider attempt for diagnostics. It never drives
// control decisions beyond the fallback loop itself.
type AttemptRecord struct {
	Provider string        `json:"provider"`
	Success  bool          `json:"success"`
	Class    ErrorClass    `json:"class,omitempty"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// AllProvidersFailedError is terminal: every configured provider was exhausted.
// It carries the full attempt history and the last underlying error.
type AllProvidersFailedError struct {
	Attempts []AttemptRecord
	Last     error
}

func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all %d providers failed: %v", len(e.Attempts), e.Last)
}

func (e *AllProvidersFailedError) Unwrap() error { return e.Last }

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func truncateErr(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
