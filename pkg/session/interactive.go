package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// URLOpener asks the host application to open the authorization page in an
// external user agent, typically the system browser. The redirect back into
// the application must be forwarded to Manager.HandleCallback.
type URLOpener interface {
	OpenURL(ctx context.Context, authorizeURL string) error
}

// URLOpenerFunc adapts a plain function to the URLOpener interface.
type URLOpenerFunc func(ctx context.Context, authorizeURL string) error

func (f URLOpenerFunc) OpenURL(ctx context.Context, authorizeURL string) error {
	return f(ctx, authorizeURL)
}

// interactiveAuthorizer drives the browser-based part of the client and
// server flows: generate a state nonce, open the authorization page, then
// suspend until the redirect callback is routed back in.
type interactiveAuthorizer struct {
	client      *oauthClient
	opener      URLOpener
	exchange    *callbackExchange
	redirectURL *url.URL
	log         *slog.Logger
}

// authorize performs one interactive authorization round trip and returns
// the delivered callback parameters.
func (a *interactiveAuthorizer) authorize(ctx context.Context, responseType string) (callbackResult, error) {
	state := newLoginState()
	pending := a.exchange.begin(state, a.redirectURL, responseType == responseTypeToken)
	defer a.exchange.finish(pending)

	authorizeURL := a.client.authorizeURL(responseType, a.redirectURL.String(), state)
	a.log.Debug("opening authorization page", "response_type", responseType)
	if err := a.opener.OpenURL(ctx, authorizeURL); err != nil {
		return callbackResult{}, fmt.Errorf("failed to open authorization page: %w", err)
	}

	// Suspend until the host application forwards the redirect callback.
	// There is deliberately no timeout; cancel ctx to abort the attempt.
	select {
	case res := <-pending.result:
		if res.errCode != "" {
			return callbackResult{}, &OAuthError{
				StatusCode:  http.StatusForbidden,
				Code:        res.errCode,
				Description: res.errDesc,
			}
		}
		return res, nil
	case <-ctx.Done():
		return callbackResult{}, ctx.Err()
	}
}

// deliverCallback implements the callbackReceiver hook the Manager uses to
// route incoming redirect URLs.
func (a *interactiveAuthorizer) deliverCallback(rawURL string) bool {
	return a.exchange.deliver(rawURL)
}

func (a *interactiveAuthorizer) callbackRoutingError() error {
	return a.exchange.routingError()
}
