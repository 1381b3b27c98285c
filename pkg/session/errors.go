package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// OAuth2 error codes per RFC 6749 the session engine cares about.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeAccessDenied   = "access_denied"
	ErrorCodeServerError    = "server_error"
)

var (
	// ErrMalformedTokenResponse reports a token endpoint response that is
	// missing required fields or carries fields of the wrong type.
	ErrMalformedTokenResponse = errors.New("malformed token response")

	// ErrNoValidSession reports that no session can be produced without user
	// interaction. The application must start an interactive login via
	// Manager.LogIn.
	ErrNoValidSession = errors.New("no valid session")

	// ErrStateMismatch reports a redirect callback whose state nonce does
	// not belong to the pending login attempt. The attempt itself stays
	// pending; the stray callback is ignored.
	ErrStateMismatch = errors.New("authorization state mismatch")
)

// UnavailableError is the terminal failure of a login or refresh attempt.
// Every caller joined to the attempt receives the same value. It means the
// user has to re-authenticate (interactive flows) or that the client is
// misconfigured (anonymous flow); transient network errors are never wrapped
// in it.
type UnavailableError struct {
	// Cause is the underlying flow failure.
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("session unavailable: %v", e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// OAuthError is an OAuth2 error response per RFC 6749 as returned by the
// Gini authorization server and the User Center token endpoints.
type OAuthError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code (e.g. "invalid_grant").
	Code string `json:"error"`

	// Description is a human-readable description of the error.
	Description string `json:"error_description"`
}

func (e *OAuthError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// ParseOAuthError converts a non-2xx token endpoint response body into an
// OAuthError. Bodies that are not OAuth2 error documents produce a generic
// error carrying the status code.
func ParseOAuthError(statusCode int, body []byte) *OAuthError {
	var parsed OAuthError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Code != "" {
		parsed.StatusCode = statusCode
		return &parsed
	}

	return &OAuthError{
		StatusCode:  statusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)),
	}
}

// isAuthRejection reports whether the error is the authorization server
// rejecting the credentials or grant, as opposed to a transport failure or a
// server-side outage. Only rejections make the flows fall back (server flow)
// or re-provision (anonymous flow).
func isAuthRejection(err error) bool {
	var oauthErr *OAuthError
	if !errors.As(err, &oauthErr) {
		return false
	}
	return oauthErr.StatusCode >= 400 && oauthErr.StatusCode < 500
}
