package apierrors

import (
	"encoding/json"
	"strings"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest   ErrorCode = "bad_request"
	ErrCodeNotFound     ErrorCode = "not_found"
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	ErrCodeRateLimited  ErrorCode = "rate_limited"

	// Server errors (5xx)
	ErrCodeInternalError   ErrorCode = "internal_error"
	ErrCodeUpstreamError   ErrorCode = "upstream_error"
	ErrCodeRetryLater      ErrorCode = "retry_later"
	ErrCodeUpstreamTimeout ErrorCode = "upstream_timeout"
)

// APIError represents a structured API error carrying code and details
type APIError struct {
	Code         ErrorCode `json:"code"`
	Message      string    `json:"message"`
	Details      string    `json:"details,omitempty"`
	RetryAfterMs int64     `json:"retryAfterMs,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

// NewUnauthorizedError builds a 401 error body
func NewUnauthorizedError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

// NewRateLimitedError builds a 429 error body reporting the time remaining in
// the current window
func NewRateLimitedError(retryAfterMs int64) *APIError {
	return &APIError{
		Code:         ErrCodeRateLimited,
		Message:      "Rate limit exceeded",
		RetryAfterMs: retryAfterMs,
	}
}
