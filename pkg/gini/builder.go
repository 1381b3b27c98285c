// Package gini assembles the SDK: it wires the session manager, the chosen
// authorization flow, the request factory and the document task manager
// behind a small builder surface.
package gini

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gini/gini-sdk-go/pkg/credstore"
	"github.com/gini/gini-sdk-go/pkg/document"
	"github.com/gini/gini-sdk-go/pkg/giniapi"
	"github.com/gini/gini-sdk-go/pkg/session"
	"github.com/gini/gini-sdk-go/pkg/slogx"
	"github.com/gini/gini-sdk-go/pkg/usercenter"
)

// Default endpoints of the Gini production and sandbox environments.
const (
	DefaultAPIBaseURL    = "https://api.gini.net"
	DefaultUserCenterURL = "https://user.gini.net"

	SandboxAPIBaseURL    = "https://api-sandbox.gini.net"
	SandboxUserCenterURL = "https://user-sandbox.gini.net"
)

// redirectHost is the fixed host of the custom-scheme redirect URL the
// browser returns to after an interactive authorization.
const redirectHost = "gini-authorization-finished"

type flowKind int

const (
	flowClient flowKind = iota
	flowServer
	flowAnonymous
)

// SDK is the assembled Gini SDK.
type SDK struct {
	// Sessions hands out API sessions and receives redirect callbacks.
	Sessions *session.Manager

	// API is the low-level Gini API client.
	API *giniapi.APIManager

	// Documents is the high-level document workflow.
	Documents *document.TaskManager

	// UserCenter is the User Center client. Only set for flows with client
	// credentials (server and anonymous).
	UserCenter *usercenter.Manager
}

// Builder collects the SDK configuration. Construct one with ClientFlow,
// ServerFlow or AnonymousUser, adjust it with the With methods, then call
// Build.
type Builder struct {
	kind         flowKind
	clientID     string
	clientSecret string
	urlScheme    string
	emailDomain  string

	apiBaseURL    string
	userCenterURL string
	store         credstore.Store
	httpClient    *http.Client
	opener        session.URLOpener
	log           *slog.Logger
}

// ClientFlow configures an SDK for public clients using the implicit grant.
// The urlScheme is the custom URL scheme registered by the host application
// for the redirect back from the browser.
func ClientFlow(clientID, urlScheme string) *Builder {
	return &Builder{kind: flowClient, clientID: clientID, urlScheme: urlScheme}
}

// ServerFlow configures an SDK for confidential clients using the
// authorization code grant with persisted refresh tokens.
func ServerFlow(clientID, clientSecret, urlScheme string) *Builder {
	return &Builder{kind: flowServer, clientID: clientID, clientSecret: clientSecret, urlScheme: urlScheme}
}

// AnonymousUser configures an SDK that provisions hidden Gini accounts
// through the User Center instead of interactive logins. Generated accounts
// use addresses under emailDomain.
func AnonymousUser(clientID, clientSecret, emailDomain string) *Builder {
	return &Builder{kind: flowAnonymous, clientID: clientID, clientSecret: clientSecret, emailDomain: emailDomain}
}

// WithAPIBaseURL overrides the Gini API endpoint.
func (b *Builder) WithAPIBaseURL(baseURL string) *Builder {
	b.apiBaseURL = baseURL
	return b
}

// WithUserCenterURL overrides the User Center endpoint.
func (b *Builder) WithUserCenterURL(baseURL string) *Builder {
	b.userCenterURL = baseURL
	return b
}

// Sandbox points the SDK at the Gini sandbox environment.
func (b *Builder) Sandbox() *Builder {
	b.apiBaseURL = SandboxAPIBaseURL
	b.userCenterURL = SandboxUserCenterURL
	return b
}

// WithCredentialsStore sets the store for refresh tokens and anonymous user
// credentials. Defaults to an in-memory store, which means credentials do
// not survive a restart.
func (b *Builder) WithCredentialsStore(store credstore.Store) *Builder {
	b.store = store
	return b
}

// WithHTTPClient sets the HTTP client used for all requests.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithURLOpener sets the opener that hands authorization page URLs to the
// host application. Required for the client and server flows.
func (b *Builder) WithURLOpener(opener session.URLOpener) *Builder {
	b.opener = opener
	return b
}

// WithLogger attaches a logger to all SDK components.
func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// Build assembles the SDK.
func (b *Builder) Build() (*SDK, error) {
	if b.clientID == "" {
		return nil, errors.New("a client ID is required")
	}

	apiBaseURL := b.apiBaseURL
	if apiBaseURL == "" {
		apiBaseURL = DefaultAPIBaseURL
	}
	userCenterURL := b.userCenterURL
	if userCenterURL == "" {
		userCenterURL = DefaultUserCenterURL
	}
	store := b.store
	if store == nil {
		store = credstore.NewMemory()
	}
	log := b.log
	if log == nil {
		log = slogx.Discard()
	}

	var userCenter *usercenter.Manager
	if b.clientSecret != "" {
		uc, err := usercenter.NewManager(usercenter.Config{
			BaseURL:      userCenterURL,
			ClientID:     b.clientID,
			ClientSecret: b.clientSecret,
			HTTPClient:   b.httpClient,
			Logger:       log,
		})
		if err != nil {
			return nil, err
		}
		userCenter = uc
	}

	flow, err := b.buildFlow(userCenterURL, store, userCenter, log)
	if err != nil {
		return nil, err
	}

	manager := session.NewManager(flow, session.WithLogger(log))

	api, err := giniapi.NewAPIManager(giniapi.APIConfig{
		BaseURL:    apiBaseURL,
		Factory:    giniapi.NewRequestFactory(manager),
		HTTPClient: b.httpClient,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	return &SDK{
		Sessions:   manager,
		API:        api,
		Documents:  document.NewTaskManager(api, document.WithLogger(log)),
		UserCenter: userCenter,
	}, nil
}

func (b *Builder) buildFlow(
	userCenterURL string,
	store credstore.Store,
	userCenter *usercenter.Manager,
	log *slog.Logger,
) (session.Flow, error) {
	switch b.kind {
	case flowClient:
		return session.NewClientFlow(session.ClientFlowConfig{
			ClientID:    b.clientID,
			AuthBaseURL: userCenterURL,
			RedirectURL: b.redirectURL(),
			Opener:      b.opener,
			HTTPClient:  b.httpClient,
			Logger:      log,
		})

	case flowServer:
		return session.NewServerFlow(session.ServerFlowConfig{
			ClientID:     b.clientID,
			ClientSecret: b.clientSecret,
			AuthBaseURL:  userCenterURL,
			RedirectURL:  b.redirectURL(),
			Opener:       b.opener,
			Store:        store,
			HTTPClient:   b.httpClient,
			Logger:       log,
		})

	case flowAnonymous:
		if userCenter == nil {
			return nil, errors.New("a client secret is required for the anonymous flow")
		}
		return session.NewAnonymousFlow(session.AnonymousFlowConfig{
			Users:       userCenter,
			Store:       store,
			EmailDomain: b.emailDomain,
			Logger:      log,
		})

	default:
		return nil, fmt.Errorf("unknown flow kind %d", b.kind)
	}
}

func (b *Builder) redirectURL() string {
	return b.urlScheme + "://" + redirectHost
}
