package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gini/gini-sdk-go/pkg/slogx"
)

// ClientFlow implements the OAuth2 implicit grant for public clients: the
// user authorizes in an external browser and the tokens arrive via the
// fragment of a redirect URL. There is no refresh token, so an expired
// session always requires a fresh interactive login.
type ClientFlow struct {
	*interactiveAuthorizer
}

// ClientFlowConfig configures a ClientFlow.
type ClientFlowConfig struct {
	// ClientID is the OAuth2 client identifier issued by Gini.
	ClientID string

	// AuthBaseURL is the base URL of the Gini authorization server, e.g.
	// "https://user.gini.net".
	AuthBaseURL string

	// RedirectURL is the custom-scheme URL the browser redirects back to,
	// e.g. "myapp://gini-authorization-finished".
	RedirectURL string

	// Opener hands authorization page URLs to the host application.
	Opener URLOpener

	// HTTPClient is optional; a default client with a 30s timeout is used
	// when nil.
	HTTPClient *http.Client

	// Logger is optional; logs are discarded when nil.
	Logger *slog.Logger
}

// NewClientFlow creates the implicit-grant flow.
func NewClientFlow(cfg ClientFlowConfig) (*ClientFlow, error) {
	auth, err := newInteractiveAuthorizer(
		cfg.ClientID, "", cfg.AuthBaseURL, cfg.RedirectURL,
		cfg.Opener, cfg.HTTPClient, cfg.Logger,
	)
	if err != nil {
		return nil, err
	}
	return &ClientFlow{interactiveAuthorizer: auth}, nil
}

// Restore always reports ErrNoValidSession: without a refresh token there is
// no way to obtain a session non-interactively.
func (f *ClientFlow) Restore(ctx context.Context) (*Session, error) {
	return nil, fmt.Errorf("%w: client flow cannot renew sessions without user interaction", ErrNoValidSession)
}

// LogIn opens the authorization page and waits for the redirect callback
// carrying the tokens in its URL fragment.
func (f *ClientFlow) LogIn(ctx context.Context) (*Session, error) {
	res, err := f.authorize(ctx, responseTypeToken)
	if err != nil {
		return nil, err
	}
	return ParseFragment(res.fragment, time.Now())
}

// newInteractiveAuthorizer validates the shared configuration of the
// interactive flows and wires the authorizer.
func newInteractiveAuthorizer(
	clientID, clientSecret, authBaseURL, redirectURL string,
	opener URLOpener,
	httpClient *http.Client,
	log *slog.Logger,
) (*interactiveAuthorizer, error) {
	if clientID == "" {
		return nil, errors.New("client ID is required")
	}
	if authBaseURL == "" {
		return nil, errors.New("authorization server base URL is required")
	}
	if opener == nil {
		return nil, errors.New("a URLOpener is required for interactive flows")
	}

	redirect, err := url.Parse(redirectURL)
	if err != nil || redirect.Scheme == "" {
		return nil, fmt.Errorf("invalid redirect URL %q", redirectURL)
	}

	if log == nil {
		log = slogx.Discard()
	}

	return &interactiveAuthorizer{
		client:      newOAuthClient(authBaseURL, clientID, clientSecret, httpClient),
		opener:      opener,
		exchange:    newCallbackExchange(),
		redirectURL: redirect,
		log:         log,
	}, nil
}
