package oaiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Common error variables
var (
	// ErrConnection indicates the server could not be reached
	ErrConnection = errors.New("connection failed")

	// ErrModelNotFound indicates the server does not serve the requested model
	ErrModelNotFound = errors.New("model not found")

	// ErrEmptyResponse indicates the API returned an empty response
	ErrEmptyResponse = errors.New("empty response from API")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("operation timed out")
)

// ErrorResponse represents a standard error response from the API:
// {"error":{"message":"...","type":"...","code":"..."}}
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
		Param   string `json:"param"`
	} `json:"error"`
}

// APIError represents an error response from an OpenAI-compatible API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Code       string
	Param      string
	RetryAfter time.Duration
	RequestID  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error is retryable.
func (e *APIError) IsRetryable() bool {
	if e.StatusCode >= 500 && e.StatusCode < 600 {
		return true
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	switch e.Code {
	case "timeout", "connection_error", "server_error":
		return true
	}
	return false
}

// IsRateLimit returns true if this is a rate limit error.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limit_exceeded"
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "invalid_api_key"
}

// Is lets a 404 or model_not_found response match ErrModelNotFound.
func (e *APIError) Is(target error) bool {
	if target == ErrModelNotFound {
		return e.StatusCode == http.StatusNotFound || e.Code == "model_not_found"
	}
	return false
}

// TimeoutError represents a timeout error with context.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s timed out after %v: %v", e.Operation, e.Duration, e.Cause)
	}
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Is implements error matching.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsRetryable checks if an error is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection)
}

// RetryDelay returns how long to wait before attempt number attempt (1-based
// count of attempts already made). A Retry-After hint wins when it is longer
// than the linear backoff.
func RetryDelay(err error, base time.Duration, attempt int) time.Duration {
	delay := base * time.Duration(attempt)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > delay {
		delay = apiErr.RetryAfter
	}
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}

// transportError classifies an http.Client failure. Cancellation passes
// through untouched.
func transportError(operation string, timeout time.Duration, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Operation: operation, Duration: timeout, Cause: err}
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}
