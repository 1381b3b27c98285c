package session

import "time"

// Session is an immutable snapshot of an authenticated identity against the
// Gini API.
type Session struct {
	// AccessToken is the bearer token used to authenticate API requests.
	AccessToken string

	// RefreshToken is the opaque token used to obtain a new access token
	// once the current one expires. Empty for flows without refresh support
	// (client flow).
	RefreshToken string

	// ExpiresAt is the absolute instant at which the access token expires.
	ExpiresAt time.Time
}

// New creates a session from raw token values.
func New(accessToken, refreshToken string, expiresAt time.Time) *Session {
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
}

// IsExpired reports whether the access token has expired at the given
// instant. The boundary is inclusive: the session counts as expired exactly
// at ExpiresAt.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CanRefresh reports whether the session carries a refresh token.
func (s *Session) CanRefresh() bool {
	return s.RefreshToken != ""
}
