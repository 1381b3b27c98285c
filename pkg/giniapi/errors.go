package giniapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the Gini API.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`

	// Message is the error description from the response body.
	Message string `json:"message"`

	// RequestID identifies the failed request for Gini support inquiries.
	RequestID string `json:"requestId"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("gini api: %s (status %d, request %s)", e.Message, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("gini api: %s (status %d)", e.Message, e.StatusCode)
}

// NotFound reports whether the requested resource does not exist.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// ParseAPIError converts a non-2xx response body into an APIError. Bodies
// that are not Gini error documents produce an error synthesized from the
// status text.
func ParseAPIError(statusCode int, body []byte) *APIError {
	var parsed APIError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		parsed.StatusCode = statusCode
		return &parsed
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    http.StatusText(statusCode),
	}
}
