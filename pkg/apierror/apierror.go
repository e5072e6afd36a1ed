package apierror

import (
	"fmt"
	"net/http"
	"time"
)

const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeConflict     = "ALREADY_EXISTS"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeRateLimited  = "RATE_LIMITED"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
)

type APIError struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Details    string        `json:"details,omitempty"`
	HTTPStatus int           `json:"-"`
	RetryAfter time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func BadRequest(message string, details string) *APIError {
	return New(CodeBadRequest, message, details, http.StatusBadRequest)
}

func Conflict(message string, details string) *APIError {
	return New(CodeConflict, message, details, http.StatusConflict)
}

func Unauthorized(message string) *APIError {
	return New(CodeUnauthorized, message, "", http.StatusUnauthorized)
}

func NotFound(message string, details string) *APIError {
	return New(CodeNotFound, message, details, http.StatusNotFound)
}

// RateLimited reports a rejected attempt. retryAfter is the time left in the
// current window.
func RateLimited(message string, retryAfter time.Duration) *APIError {
	err := New(CodeRateLimited, message, "", http.StatusTooManyRequests)
	err.RetryAfter = retryAfter
	return err
}

// RetryAfterSeconds rounds RetryAfter up so clients never retry early.
func (e *APIError) RetryAfterSeconds() int {
	if e == nil || e.RetryAfter <= 0 {
		return 0
	}

	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}

	return secs
}
