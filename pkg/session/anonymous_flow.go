package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/gini/gini-sdk-go/pkg/credstore"
	"github.com/gini/gini-sdk-go/pkg/cryptox"
	"github.com/gini/gini-sdk-go/pkg/slogx"
)

// UserProvisioner is the part of the Gini User Center client the anonymous
// flow depends on: creating hidden user accounts and logging them in.
type UserProvisioner interface {
	// CreateUser creates a new user and returns its unique ID.
	CreateUser(ctx context.Context, email, password string) (string, error)

	// LoginUser logs the user in via the resource owner password grant.
	LoginUser(ctx context.Context, username, password string) (*Session, error)

	// UserID resolves the user ID behind a Gini API session.
	UserID(ctx context.Context, s *Session) (string, error)

	// UpdateEmail changes a user's email address.
	UpdateEmail(ctx context.Context, userID, oldEmail, newEmail string) error
}

// AnonymousFlow provisions hidden user accounts through the Gini User
// Center instead of asking the user to authorize in a browser. Accounts get
// a random "<uuid>@<emailDomain>" address and a random password; both are
// kept in the credentials store so the same account is reused across
// restarts. Fully machine-to-machine: no external callback is ever needed.
type AnonymousFlow struct {
	users       UserProvisioner
	store       credstore.Store
	emailDomain string
	log         *slog.Logger
}

// AnonymousFlowConfig configures an AnonymousFlow.
type AnonymousFlowConfig struct {
	// Users performs the User Center requests.
	Users UserProvisioner

	// Store persists the generated account credentials.
	Store credstore.Store

	// EmailDomain is the domain part of generated user addresses.
	EmailDomain string

	Logger *slog.Logger
}

// NewAnonymousFlow creates the anonymous user flow.
func NewAnonymousFlow(cfg AnonymousFlowConfig) (*AnonymousFlow, error) {
	if cfg.Users == nil {
		return nil, errors.New("a user provisioner is required for the anonymous flow")
	}
	if cfg.Store == nil {
		return nil, errors.New("a credentials store is required for the anonymous flow")
	}
	if cfg.EmailDomain == "" {
		return nil, errors.New("an email domain is required for the anonymous flow")
	}

	log := cfg.Logger
	if log == nil {
		log = slogx.Discard()
	}

	return &AnonymousFlow{
		users:       cfg.Users,
		store:       cfg.Store,
		emailDomain: cfg.EmailDomain,
		log:         log,
	}, nil
}

// Restore logs in with the stored credentials, provisioning a fresh account
// when there are none. Identical to LogIn: the flow never needs user
// interaction.
func (f *AnonymousFlow) Restore(ctx context.Context) (*Session, error) {
	return f.logIn(ctx)
}

// LogIn logs in with the stored credentials, provisioning a fresh account
// when there are none or the server rejects them.
func (f *AnonymousFlow) LogIn(ctx context.Context) (*Session, error) {
	return f.logIn(ctx)
}

func (f *AnonymousFlow) logIn(ctx context.Context) (*Session, error) {
	if creds, ok := f.store.FetchUserCredentials(); ok {
		s, err := f.users.LoginUser(ctx, creds.Username, creds.Password)
		if err == nil {
			f.ensureEmailDomain(ctx, s, creds)
			return s, nil
		}
		if !isAuthRejection(err) {
			return nil, err
		}
		f.log.Info("stored anonymous credentials rejected, provisioning a new user")
	}

	return f.provision(ctx)
}

// provision creates a random user, persists its credentials and logs it in.
// Persistence happens before the login: losing the credentials would orphan
// the freshly created account.
func (f *AnonymousFlow) provision(ctx context.Context) (*Session, error) {
	email := uuid.NewString() + "@" + f.emailDomain
	password, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user password: %w", err)
	}

	if _, err := f.users.CreateUser(ctx, email, password); err != nil {
		return nil, fmt.Errorf("failed to create anonymous user: %w", err)
	}

	if !f.store.StoreUserCredentials(email, password) {
		return nil, errors.New("failed to persist anonymous user credentials")
	}

	f.log.Info("provisioned anonymous user account")
	return f.users.LoginUser(ctx, email, password)
}

// ensureEmailDomain migrates accounts created under a previously configured
// email domain to the current one. Failures are non-fatal; the session is
// valid either way and the migration is retried on the next login.
func (f *AnonymousFlow) ensureEmailDomain(ctx context.Context, s *Session, creds credstore.Credentials) {
	local, domain, ok := strings.Cut(creds.Username, "@")
	if !ok || domain == f.emailDomain {
		return
	}

	userID, err := f.users.UserID(ctx, s)
	if err != nil {
		f.log.Warn("failed to resolve user for email domain migration", "error", err)
		return
	}

	newEmail := local + "@" + f.emailDomain
	if err := f.users.UpdateEmail(ctx, userID, creds.Username, newEmail); err != nil {
		f.log.Warn("failed to migrate anonymous user email domain", "error", err)
		return
	}

	if !f.store.StoreUserCredentials(newEmail, creds.Password) {
		f.log.Warn("failed to persist migrated user credentials")
		return
	}
	f.log.Info("migrated anonymous user to configured email domain")
}
