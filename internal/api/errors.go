// Package api is the HTTP client for the backend. It exposes the four
// resource operations the rest of the client consumes: list, create,
// update, delete.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// fallbackMessage is shown when the backend rejects a request without a
// usable detail string.
const fallbackMessage = "Something went wrong. Please try again."

// APIError is an application-level rejection carried in the backend's
// {status, detail} error payload.
type APIError struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: request rejected with status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Detail, e.Status)
}

// UserMessage returns the backend's detail verbatim, or a generic fallback
// when the backend supplied none.
func (e *APIError) UserMessage() string {
	if e.Detail == "" {
		return fallbackMessage
	}
	return e.Detail
}

// TransportError wraps a failure that never produced a backend response:
// connection refused, DNS failure, timeout. The caller may retry it once;
// application rejections must never be retried automatically.
type TransportError struct {
	err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api: transport failure: %v", e.err)
}

func (e *TransportError) Unwrap() error {
	return e.err
}

// IsTransport reports whether the error is a transport failure.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsApplicationRejected reports whether the backend rejected the request
// with a business error.
func IsApplicationRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// UserMessage extracts a user-facing message from any client error.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return fallbackMessage
}

// retryable status codes are server-side conditions worth one more attempt.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Retryable reports whether the caller may reasonably retry the request
// once. Application rejections below 500 are final.
func Retryable(err error) bool {
	if IsTransport(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Status)
	}
	return false
}
