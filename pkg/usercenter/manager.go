package usercenter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gini/gini-sdk-go/pkg/session"
	"github.com/gini/gini-sdk-go/pkg/slogx"
)

const tokenPath = "/oauth/token"

// clientTokenSkew is how early the cached client token is renewed.
const clientTokenSkew = 30 * time.Second

// Manager talks to the Gini User Center API on behalf of a confidential
// client. It implements session.UserProvisioner for the anonymous flow.
type Manager struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          *slog.Logger

	mu          sync.RWMutex
	clientToken *session.Session
}

// Config configures a Manager.
type Config struct {
	// BaseURL is the User Center base URL, e.g. "https://user.gini.net".
	BaseURL string

	// ClientID and ClientSecret are the confidential client credentials.
	ClientID     string
	ClientSecret string

	// HTTPClient is optional; a default client with a 30s timeout is used
	// when nil.
	HTTPClient *http.Client

	// Logger is optional; logs are discarded when nil.
	Logger *slog.Logger
}

// NewManager creates a User Center client.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("user center base URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client credentials are required for the user center")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	log := cfg.Logger
	if log == nil {
		log = slogx.Discard()
	}

	return &Manager{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   httpClient,
		log:          log,
	}, nil
}

// getClientToken returns a valid client access token, renewing it through the
// client credentials grant when the cached one has expired.
func (m *Manager) getClientToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	if s := m.clientToken; s != nil && !s.IsExpired(time.Now().Add(clientTokenSkew)) {
		token := s.AccessToken
		m.mu.RUnlock()
		return token, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock (another goroutine may
	// have renewed the token).
	if s := m.clientToken; s != nil && !s.IsExpired(time.Now().Add(clientTokenSkew)) {
		return s.AccessToken, nil
	}

	s, err := m.requestToken(ctx, url.Values{"grant_type": {"client_credentials"}})
	if err != nil {
		return "", fmt.Errorf("failed to obtain client token: %w", err)
	}

	m.log.Debug("renewed user center client token", "expires_at", s.ExpiresAt)
	m.clientToken = s
	return s.AccessToken, nil
}

// requestToken sends a form-encoded grant to the token endpoint.
func (m *Manager) requestToken(ctx context.Context, data url.Values) (*session.Session, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+tokenPath,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(m.clientID, m.clientSecret)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, session.ParseOAuthError(resp.StatusCode, body)
	}

	return session.ParseTokenResponse(body, time.Now())
}

// doJSON sends a client-token authenticated request and returns the response.
// The caller owns the response body.
func (m *Manager) doJSON(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	token, err := m.getClientToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// responseError drains a non-2xx response into an error.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return session.ParseOAuthError(resp.StatusCode, body)
}
