package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes for categorization
const (
	// Client errors (4xx)
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeRateLimited = "RATE_LIMITED"

	// Server errors (5xx)
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeDatabase    = "DATABASE_ERROR"
	ErrCodeExternalAPI = "EXTERNAL_API_ERROR"
	ErrCodeTimeout     = "TIMEOUT_ERROR"

	// Business logic errors
	ErrCodeCaptureFailed     = "CAPTURE_FAILED"
	ErrCodeModelFailed       = "MODEL_FAILED"
	ErrCodeModelQuota        = "MODEL_QUOTA_EXCEEDED"
	ErrCodeMalformedResponse = "MALFORMED_MODEL_RESPONSE"
)

// AppError is the base error type for all application errors
type AppError struct {
	// Error code for programmatic handling
	Code string `json:"code"`

	// Human-readable message
	Message string `json:"message"`

	// HTTP status code
	HTTPStatus int `json:"-"`

	// Original error (for error wrapping)
	Cause error `json:"-"`

	// Metadata for additional context
	Metadata map[string]any `json:"metadata,omitempty"`

	// Retry information
	Retryable  bool          `json:"retryable"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value any) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// WithRetry marks the error as retryable
func (e *AppError) WithRetry(after time.Duration) *AppError {
	e.Retryable = true
	e.RetryAfter = after
	return e
}

// NewError creates a new AppError
func NewError(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Error constructors

func ErrValidation(message string) *AppError {
	return NewError(ErrCodeValidation, message, http.StatusBadRequest)
}

func ErrInvalidURL(url string) *AppError {
	return NewError(ErrCodeValidation, fmt.Sprintf("invalid URL: %q", url), http.StatusBadRequest).
		WithMetadata("url", url)
}

func ErrNotFound(resource, id string) *AppError {
	return NewError(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", resource, id), http.StatusNotFound).
		WithMetadata("resource", resource).
		WithMetadata("id", id)
}

func ErrAuditNotFound(id string) *AppError {
	return ErrNotFound("audit", id)
}

func ErrRateLimited(retryAfter time.Duration) *AppError {
	return NewError(ErrCodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests).
		WithRetry(retryAfter)
}

func ErrInternal(message string) *AppError {
	if message == "" {
		message = "Internal server error"
	}
	return NewError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func ErrDatabase(err error) *AppError {
	return NewError(ErrCodeDatabase, "Database error", http.StatusInternalServerError).
		WithCause(err)
}

func ErrTimeout(operation string) *AppError {
	return NewError(ErrCodeTimeout, fmt.Sprintf("Operation timed out: %s", operation), http.StatusGatewayTimeout).
		WithMetadata("operation", operation).
		WithRetry(10 * time.Second)
}

// Business logic errors

// ErrCaptureFailed covers navigation timeouts and render failures. The core
// cannot synthesize a review without a snapshot, so this is fatal to the
// analysis.
func ErrCaptureFailed(reason string, err error) *AppError {
	return NewError(ErrCodeCaptureFailed, fmt.Sprintf("Page capture failed: %s", reason), http.StatusUnprocessableEntity).
		WithCause(err)
}

// ErrModelFailed covers transient model failures that exhausted their retry
// budget.
func ErrModelFailed(err error) *AppError {
	return NewError(ErrCodeModelFailed, "Model call failed", http.StatusBadGateway).
		WithCause(err)
}

// ErrMalformedResponse means no JSON object could be located anywhere in the
// model output. Anything short of that is recovered by the sanitizer.
func ErrMalformedResponse(err error) *AppError {
	return NewError(ErrCodeMalformedResponse, "Model returned no parseable JSON", http.StatusBadGateway).
		WithCause(err)
}

// Helper functions

// AsAppError converts an error to AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the HTTP status code for an error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the error code for an error
func GetErrorCode(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
