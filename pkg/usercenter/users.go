package usercenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gini/gini-sdk-go/pkg/session"
)

// User is a Gini User Center account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TokenInfo describes an access token as reported by the check_token
// endpoint.
type TokenInfo struct {
	UserName string   `json:"user_name"`
	ClientID string   `json:"client_id"`
	Scope    []string `json:"scope"`
	// ExpiresIn is the remaining lifetime in seconds.
	ExpiresIn int64 `json:"exp"`
}

// CreateUser creates a new user account and returns its ID, taken from the
// Location header of the response.
func (m *Manager) CreateUser(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode user payload: %w", err)
	}

	resp, err := m.doJSON(ctx, http.MethodPost, "/api/users", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("failed to create user: %w", responseError(resp))
	}

	location := resp.Header.Get("Location")
	id := location[strings.LastIndex(location, "/")+1:]
	if id == "" {
		return "", fmt.Errorf("create user response carried no user location (Location: %q)", location)
	}

	m.log.Debug("created user center account", "user_id", id)
	return id, nil
}

// LoginUser logs a user in via the resource owner password grant and returns
// the resulting Gini API session.
func (m *Manager) LoginUser(ctx context.Context, username, password string) (*session.Session, error) {
	return m.requestToken(ctx, url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	})
}

// GetUserInfo fetches a user account by ID.
func (m *Manager) GetUserInfo(ctx context.Context, userID string) (*User, error) {
	resp, err := m.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, responseError(resp))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	return &user, nil
}

// TokenInfoFor introspects an access token via the check_token endpoint.
func (m *Manager) TokenInfoFor(ctx context.Context, accessToken string) (*TokenInfo, error) {
	resp, err := m.doJSON(ctx, http.MethodGet, "/oauth/check_token?token="+url.QueryEscape(accessToken), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to introspect token: %w", responseError(resp))
	}

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode token info: %w", err)
	}
	return &info, nil
}

// UserID resolves the account behind a Gini API session. The session's own
// access token authorizes the userinfo call; no client token is involved.
func (m *Manager) UserID(ctx context.Context, s *session.Session) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/userinfo", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to resolve user: %w", session.ParseOAuthError(resp.StatusCode, body))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("userinfo response carried no user ID")
	}
	return user.ID, nil
}

// UpdateEmail changes a user's email address. The old address must be given
// so a concurrently changed account is not overwritten blindly.
func (m *Manager) UpdateEmail(ctx context.Context, userID, oldEmail, newEmail string) error {
	payload, err := json.Marshal(map[string]string{
		"oldEmail": oldEmail,
		"email":    newEmail,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email update: %w", err)
	}

	resp, err := m.doJSON(ctx, http.MethodPut, "/api/users/"+url.PathEscape(userID), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to update email for user %s: %w", userID, responseError(resp))
	}

	m.log.Debug("updated user email", "user_id", userID)
	return nil
}

// interface guard
var _ session.UserProvisioner = (*Manager)(nil)
