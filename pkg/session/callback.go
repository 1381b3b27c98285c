package session

import (
	"net/url"
	"strings"
	"sync"
)

// callbackResult carries the parameters delivered by an incoming redirect
// callback: the authorization code for the code flow, the URL fragment for
// the implicit flow, or an error reported by the authorization server.
type callbackResult struct {
	code     string
	fragment url.Values
	errCode  string
	errDesc  string
}

// pendingAuthorization is the single in-flight interactive login attempt
// waiting for its redirect callback.
type pendingAuthorization struct {
	state       string
	redirectURL *url.URL
	implicit    bool
	result      chan callbackResult
}

// callbackExchange routes incoming redirect URLs to the pending interactive
// login attempt. At most one attempt is pending at a time; the Manager's
// single-flight logic guarantees that.
type callbackExchange struct {
	mu       sync.Mutex
	pending  *pendingAuthorization
	routeErr error
}

func newCallbackExchange() *callbackExchange {
	return &callbackExchange{}
}

// begin registers a new pending authorization identified by its state nonce.
func (x *callbackExchange) begin(state string, redirectURL *url.URL, implicit bool) *pendingAuthorization {
	p := &pendingAuthorization{
		state:       state,
		redirectURL: redirectURL,
		implicit:    implicit,
		result:      make(chan callbackResult, 1),
	}

	x.mu.Lock()
	x.pending = p
	x.routeErr = nil
	x.mu.Unlock()
	return p
}

// finish releases the pending slot if it still belongs to p.
func (x *callbackExchange) finish(p *pendingAuthorization) {
	x.mu.Lock()
	if x.pending == p {
		x.pending = nil
	}
	x.mu.Unlock()
}

// deliver routes an incoming redirect URL to the pending attempt. It reports
// whether the URL was consumed. Unrelated URLs and callbacks with a stale
// state nonce are not consumed and leave the pending attempt untouched, so a
// spurious or replayed redirect cannot hijack a newer login attempt.
func (x *callbackExchange) deliver(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	p := x.pending
	if p == nil {
		return false
	}

	if !strings.EqualFold(u.Scheme, p.redirectURL.Scheme) ||
		!strings.EqualFold(u.Host, p.redirectURL.Host) {
		return false
	}

	params := u.Query()
	if p.implicit {
		fragment, err := FragmentParameters(u)
		if err != nil {
			return false
		}
		params = fragment
	}

	if params.Get("state") != p.state {
		x.routeErr = ErrStateMismatch
		return false
	}

	res := callbackResult{
		errCode: params.Get("error"),
		errDesc: params.Get("error_description"),
	}
	if p.implicit {
		res.fragment = params
	} else {
		res.code = params.Get("code")
	}

	x.pending = nil
	p.result <- res
	return true
}

// routingError returns the last non-terminal routing failure (a state
// mismatch). It does not affect the pending attempt.
func (x *callbackExchange) routingError() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.routeErr
}
