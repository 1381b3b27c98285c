package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authorizePath = "/oauth/authorize"
	tokenPath     = "/oauth/token"

	responseTypeCode  = "code"
	responseTypeToken = "token"
)

// oauthClient talks to the Gini authorization server's OAuth2 endpoints.
// It only knows the wire protocol; flow sequencing lives in the flows.
type oauthClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func newOAuthClient(baseURL, clientID, clientSecret string, httpClient *http.Client) *oauthClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &oauthClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

// authorizeURL builds the authorization page URL the user's browser is sent
// to at the start of an interactive flow.
func (c *oauthClient) authorizeURL(responseType, redirectURI, state string) string {
	params := url.Values{}
	params.Set("response_type", responseType)
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)

	return c.baseURL + authorizePath + "?" + params.Encode()
}

// refreshGrant requests a new session using a refresh token.
func (c *oauthClient) refreshGrant(ctx context.Context, refreshToken string) (*Session, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	return c.requestToken(ctx, data)
}

// exchangeCode exchanges an authorization code for a session.
func (c *oauthClient) exchangeCode(ctx context.Context, code, redirectURI string) (*Session, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	return c.requestToken(ctx, data)
}

func (c *oauthClient) requestToken(ctx context.Context, data url.Values) (*Session, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+tokenPath,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ParseOAuthError(resp.StatusCode, body)
	}

	return ParseTokenResponse(body, time.Now())
}
