package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParseTokenResponse converts a token endpoint JSON body into a Session.
// The body must carry a non-empty access_token and an expires_in value in
// seconds; refresh_token is optional. expires_in is resolved into an
// absolute instant relative to receivedAt, so expires_in = 0 yields a
// session that is already expired, which is valid.
//
// When expires_in is absent but the access token is a JWT carrying an exp
// claim, the claim is used instead. The token is not verified for this; the
// server remains the authority on whether it accepts the token.
func ParseTokenResponse(body []byte, receivedAt time.Time) (*Session, error) {
	var payload struct {
		AccessToken  *string      `json:"access_token"`
		RefreshToken string       `json:"refresh_token"`
		ExpiresIn    *json.Number `json:"expires_in"`
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTokenResponse, err)
	}

	if payload.AccessToken == nil || *payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrMalformedTokenResponse)
	}

	var expiresAt time.Time
	switch {
	case payload.ExpiresIn != nil:
		seconds, err := expiresInSeconds(*payload.ExpiresIn)
		if err != nil {
			return nil, err
		}
		expiresAt = receivedAt.Add(seconds)
	default:
		exp, ok := jwtExpiry(*payload.AccessToken)
		if !ok {
			return nil, fmt.Errorf("%w: missing expires_in", ErrMalformedTokenResponse)
		}
		expiresAt = exp
	}

	return New(*payload.AccessToken, payload.RefreshToken, expiresAt), nil
}

// ParseFragment converts the URL fragment parameters delivered by the
// implicit client flow redirect into a Session. The fragment carries no
// refresh token.
func ParseFragment(params url.Values, receivedAt time.Time) (*Session, error) {
	accessToken := params.Get("access_token")
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrMalformedTokenResponse)
	}

	raw := params.Get("expires_in")
	if raw == "" {
		return nil, fmt.Errorf("%w: missing expires_in", ErrMalformedTokenResponse)
	}
	seconds, err := expiresInSeconds(json.Number(raw))
	if err != nil {
		return nil, err
	}

	return New(accessToken, "", receivedAt.Add(seconds)), nil
}

// FragmentParameters extracts the fragment part of a URL as url.Values.
func FragmentParameters(u *url.URL) (url.Values, error) {
	return url.ParseQuery(u.Fragment)
}

func expiresInSeconds(n json.Number) (time.Duration, error) {
	if i, err := n.Int64(); err == nil {
		return time.Duration(i) * time.Second, nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid expires_in %q", ErrMalformedTokenResponse, n.String())
	}
	return time.Duration(f * float64(time.Second)), nil
}

// jwtExpiry extracts the exp claim from a JWT access token without
// verifying the signature.
func jwtExpiry(accessToken string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
