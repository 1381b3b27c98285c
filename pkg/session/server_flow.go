package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gini/gini-sdk-go/pkg/credstore"
)

// ServerFlow implements the OAuth2 authorization code grant for confidential
// clients. Sessions carry a refresh token which is persisted in the
// credentials store, so most renewals are a single machine-to-machine call;
// the browser round trip only happens when there is no usable refresh token.
type ServerFlow struct {
	*interactiveAuthorizer
	store credstore.Store
}

// ServerFlowConfig configures a ServerFlow.
type ServerFlowConfig struct {
	// ClientID and ClientSecret are the confidential client credentials
	// issued by Gini.
	ClientID     string
	ClientSecret string

	// AuthBaseURL is the base URL of the Gini authorization server.
	AuthBaseURL string

	// RedirectURL is the custom-scheme URL the browser redirects back to.
	RedirectURL string

	// Opener hands authorization page URLs to the host application.
	Opener URLOpener

	// Store persists the refresh token across restarts.
	Store credstore.Store

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewServerFlow creates the authorization-code flow.
func NewServerFlow(cfg ServerFlowConfig) (*ServerFlow, error) {
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required for the server flow")
	}
	if cfg.Store == nil {
		return nil, errors.New("a credentials store is required for the server flow")
	}

	auth, err := newInteractiveAuthorizer(
		cfg.ClientID, cfg.ClientSecret, cfg.AuthBaseURL, cfg.RedirectURL,
		cfg.Opener, cfg.HTTPClient, cfg.Logger,
	)
	if err != nil {
		return nil, err
	}

	return &ServerFlow{interactiveAuthorizer: auth, store: cfg.Store}, nil
}

// Restore renews the session with the stored refresh token. A rejected
// refresh token is removed from the store and reported as an error so the
// application knows to start an interactive login; transport errors are
// passed through untouched.
func (f *ServerFlow) Restore(ctx context.Context) (*Session, error) {
	token, ok := f.store.FetchRefreshToken()
	if !ok {
		return nil, fmt.Errorf("%w: no stored refresh token", ErrNoValidSession)
	}

	s, err := f.client.refreshGrant(ctx, token)
	if err != nil {
		if isAuthRejection(err) {
			f.log.Info("stored refresh token rejected", "error", err)
			f.store.RemoveCredentials()
		}
		return nil, err
	}

	f.persist(s)
	return s, nil
}

// LogIn renews via the refresh token when possible and falls back to the
// full interactive authorization only when the authorization server rejects
// the token. The returned authorization code is exchanged server-side using
// the client secret.
func (f *ServerFlow) LogIn(ctx context.Context) (*Session, error) {
	if token, ok := f.store.FetchRefreshToken(); ok {
		s, err := f.client.refreshGrant(ctx, token)
		if err == nil {
			f.persist(s)
			return s, nil
		}
		if !isAuthRejection(err) {
			return nil, err
		}
		f.log.Info("refresh token rejected, falling back to interactive authorization")
		f.store.RemoveCredentials()
	}

	res, err := f.authorize(ctx, responseTypeCode)
	if err != nil {
		return nil, err
	}
	if res.code == "" {
		return nil, fmt.Errorf("%w: callback carried no authorization code", ErrMalformedTokenResponse)
	}

	s, err := f.client.exchangeCode(ctx, res.code, f.redirectURL.String())
	if err != nil {
		return nil, err
	}

	f.persist(s)
	return s, nil
}

func (f *ServerFlow) persist(s *Session) {
	if !s.CanRefresh() {
		return
	}
	if !f.store.StoreRefreshToken(s.RefreshToken) {
		f.log.Warn("failed to persist refresh token")
	}
}
