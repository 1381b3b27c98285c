package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gini/gini-sdk-go/pkg/slogx"
)

// DefaultExpirySkew is how early the Manager treats a session as expired.
// The margin avoids handing out a token that expires while the request
// carrying it is still in flight.
const DefaultExpirySkew = 10 * time.Second

// Flow is the strategy for obtaining a new session when none is cached or
// the cached one has expired.
type Flow interface {
	// Restore obtains a session without user interaction (stored refresh
	// token, stored credentials). It reports ErrNoValidSession when an
	// interactive login is the only way forward.
	Restore(ctx context.Context) (*Session, error)

	// LogIn performs a full login for the flow. Interactive flows suspend
	// until the redirect callback is delivered through HandleCallback.
	LogIn(ctx context.Context) (*Session, error)
}

// callbackReceiver is implemented by the interactive flows; it lets the
// Manager route incoming redirect URLs to the pending authorization.
type callbackReceiver interface {
	deliverCallback(rawURL string) bool
	callbackRoutingError() error
}

// attempt is one in-flight login or refresh operation. Callers arriving
// while it is pending join it instead of starting their own; all of them
// observe the same session or the same failure.
type attempt struct {
	done    chan struct{}
	session *Session
	err     error
}

// Manager hands out usable sessions and owns all mutable session state: the
// cached session and the single pending attempt. All mutation is funneled
// through the single-flight attempt, so no two logins ever run concurrently
// and credential store writes are serialized by construction.
type Manager struct {
	flow Flow
	skew time.Duration
	now  func() time.Time
	log  *slog.Logger

	mu      sync.Mutex
	current *Session
	pending *attempt
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithExpirySkew overrides how early sessions are considered expired.
func WithExpirySkew(skew time.Duration) ManagerOption {
	return func(m *Manager) { m.skew = skew }
}

// WithLogger attaches a logger. Token values are never logged.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager on top of the given flow.
func NewManager(flow Flow, opts ...ManagerOption) *Manager {
	m := &Manager{
		flow: flow,
		skew: DefaultExpirySkew,
		now:  time.Now,
		log:  slogx.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetSession returns a session that is ready to authorize API requests. A
// cached session that has not expired (minus the expiry skew) is returned
// immediately. Otherwise exactly one non-interactive restore attempt runs,
// no matter how many callers arrive concurrently, and every caller receives
// its result.
//
// A terminal authentication failure is returned as *UnavailableError; the
// application must then start an interactive login via LogIn. Transport
// errors are passed through unchanged so callers can apply their own retry
// policy.
func (m *Manager) GetSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if s := m.current; s != nil && !s.IsExpired(m.now().Add(m.skew)) {
		m.mu.Unlock()
		return s, nil
	}

	a := m.pending
	if a == nil {
		a = m.startAttempt(ctx, m.flow.Restore, "restore")
	}
	m.mu.Unlock()

	return m.await(ctx, a)
}

// LogIn forces a fresh login attempt, bypassing the cached session. A
// pending attempt of either kind is joined rather than doubled: only one
// authorization flow is ever in flight per Manager.
func (m *Manager) LogIn(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	a := m.pending
	if a == nil {
		a = m.startAttempt(ctx, m.flow.LogIn, "login")
	}
	m.mu.Unlock()

	return m.await(ctx, a)
}

// HandleCallback routes an incoming redirect URL to the pending interactive
// login. It reports whether the URL was consumed: false for URLs that do not
// match the configured redirect URI, for callbacks with a stale state nonce
// and for flows without interactive logins. The host application forwards
// every URL it is asked to open and uses the return value to decide whether
// to handle the URL itself.
func (m *Manager) HandleCallback(rawURL string) bool {
	r, ok := m.flow.(callbackReceiver)
	if !ok {
		return false
	}
	return r.deliverCallback(rawURL)
}

// CallbackError returns the last non-terminal callback routing failure,
// such as ErrStateMismatch from a stale redirect. The pending login attempt
// is unaffected by these.
func (m *Manager) CallbackError() error {
	r, ok := m.flow.(callbackReceiver)
	if !ok {
		return nil
	}
	return r.callbackRoutingError()
}

// LogOut drops the cached session. The credentials store is not touched
// here; flows own their stored secrets.
func (m *Manager) LogOut() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// startAttempt launches one flow operation. Must be called with m.mu held.
//
// The attempt runs on a context detached from the starting caller: a caller
// abandoning its wait must not cancel an operation other callers are joined
// to. Cancellation of an individual wait is advisory; the attempt always
// runs to completion.
func (m *Manager) startAttempt(ctx context.Context, run func(context.Context) (*Session, error), kind string) *attempt {
	a := &attempt{done: make(chan struct{})}
	m.pending = a

	actx := context.WithoutCancel(ctx)
	m.log.Debug("starting session attempt", "kind", kind)

	go func() {
		s, err := run(actx)

		m.mu.Lock()
		if err != nil {
			// The attempt's failure invalidates whatever was cached; keeping
			// a stale session around would only defer the error to the next
			// API call.
			m.current = nil
			a.err = classifyFailure(err)
			m.log.Warn("session attempt failed", "kind", kind, "error", err)
		} else {
			// Cache before clearing the handle: a caller that observes the
			// attempt as finished must also observe its session.
			m.current = s
			a.session = s
			m.log.Debug("session attempt succeeded", "kind", kind, "expires_at", s.ExpiresAt)
		}
		m.pending = nil
		m.mu.Unlock()

		close(a.done)
	}()

	return a
}

// await blocks until the attempt finishes or the caller's context is done.
// The attempt keeps running either way.
func (m *Manager) await(ctx context.Context, a *attempt) (*Session, error) {
	select {
	case <-a.done:
		if a.err != nil {
			return nil, a.err
		}
		return a.session, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// classifyFailure wraps authentication failures in *UnavailableError and
// lets transport errors through untouched.
func classifyFailure(err error) error {
	if errors.Is(err, ErrNoValidSession) || isAuthRejection(err) {
		return &UnavailableError{Cause: err}
	}
	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return err
	}
	if errors.Is(err, ErrMalformedTokenResponse) {
		return &UnavailableError{Cause: err}
	}
	return err
}
