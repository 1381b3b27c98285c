package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gini/gini-sdk-go/pkg/credstore"
)

// fakeProvisioner is a scriptable UserProvisioner.
type fakeProvisioner struct {
	createCalls atomic.Int64
	loginCalls  atomic.Int64

	createUser  func(ctx context.Context, email, password string) (string, error)
	loginUser   func(ctx context.Context, username, password string) (*Session, error)
	userID      func(ctx context.Context, s *Session) (string, error)
	updateEmail func(ctx context.Context, userID, oldEmail, newEmail string) error
}

func (f *fakeProvisioner) CreateUser(ctx context.Context, email, password string) (string, error) {
	f.createCalls.Add(1)
	if f.createUser == nil {
		return "user-1", nil
	}
	return f.createUser(ctx, email, password)
}

func (f *fakeProvisioner) LoginUser(ctx context.Context, username, password string) (*Session, error) {
	f.loginCalls.Add(1)
	if f.loginUser == nil {
		return New("access", "", time.Now().Add(time.Hour)), nil
	}
	return f.loginUser(ctx, username, password)
}

func (f *fakeProvisioner) UserID(ctx context.Context, s *Session) (string, error) {
	if f.userID == nil {
		return "user-1", nil
	}
	return f.userID(ctx, s)
}

func (f *fakeProvisioner) UpdateEmail(ctx context.Context, userID, oldEmail, newEmail string) error {
	if f.updateEmail == nil {
		return nil
	}
	return f.updateEmail(ctx, userID, oldEmail, newEmail)
}

func newAnonymousFlow(t *testing.T, users UserProvisioner, store credstore.Store) *AnonymousFlow {
	t.Helper()

	flow, err := NewAnonymousFlow(AnonymousFlowConfig{
		Users:       users,
		Store:       store,
		EmailDomain: "example.com",
	})
	require.NoError(t, err)
	return flow
}

func TestAnonymousFlowProvisionsUser(t *testing.T) {
	t.Parallel()

	store := credstore.NewMemory()
	users := &fakeProvisioner{}

	var createdEmail, createdPassword string
	users.createUser = func(_ context.Context, email, password string) (string, error) {
		createdEmail = email
		createdPassword = password

		// The credentials must not be persisted before the account exists.
		_, ok := store.FetchUserCredentials()
		require.False(t, ok)
		return "user-1", nil
	}
	users.loginUser = func(_ context.Context, username, password string) (*Session, error) {
		require.Equal(t, createdEmail, username)
		require.Equal(t, createdPassword, password)

		// And they must be persisted before the login: losing them now would
		// orphan the account.
		creds, ok := store.FetchUserCredentials()
		require.True(t, ok)
		require.Equal(t, createdEmail, creds.Username)
		return New("anon-access", "", time.Now().Add(time.Hour)), nil
	}

	flow := newAnonymousFlow(t, users, store)

	s, err := flow.LogIn(context.Background())
	require.NoError(t, err)
	require.Equal(t, "anon-access", s.AccessToken)

	require.True(t, strings.HasSuffix(createdEmail, "@example.com"))
	require.NotEmpty(t, createdPassword)
	require.EqualValues(t, 1, users.createCalls.Load())
	require.EqualValues(t, 1, users.loginCalls.Load())
}

func TestAnonymousFlowReusesStoredCredentials(t *testing.T) {
	t.Parallel()

	store := credstore.NewMemory()
	store.StoreUserCredentials("aaaa@example.com", "pw")

	users := &fakeProvisioner{}
	users.loginUser = func(_ context.Context, username, password string) (*Session, error) {
		require.Equal(t, "aaaa@example.com", username)
		require.Equal(t, "pw", password)
		return New("anon-access", "", time.Now().Add(time.Hour)), nil
	}

	flow := newAnonymousFlow(t, users, store)

	_, err := flow.Restore(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 0, users.createCalls.Load(), "an existing account must be reused")
	require.EqualValues(t, 1, users.loginCalls.Load())
}

func TestAnonymousFlowReprovisionsOnRejection(t *testing.T) {
	t.Parallel()

	store := credstore.NewMemory()
	store.StoreUserCredentials("gone@example.com", "old-pw")

	users := &fakeProvisioner{}
	users.loginUser = func(_ context.Context, username, password string) (*Session, error) {
		if username == "gone@example.com" {
			// The account was deleted server-side.
			return nil, &OAuthError{StatusCode: http.StatusBadRequest, Code: ErrorCodeInvalidGrant}
		}
		return New("anon-access", "", time.Now().Add(time.Hour)), nil
	}

	flow := newAnonymousFlow(t, users, store)

	s, err := flow.LogIn(context.Background())
	require.NoError(t, err)
	require.Equal(t, "anon-access", s.AccessToken)
	require.EqualValues(t, 1, users.createCalls.Load(), "expected exactly one replacement account")
	require.EqualValues(t, 2, users.loginCalls.Load())

	creds, ok := store.FetchUserCredentials()
	require.True(t, ok)
	require.NotEqual(t, "gone@example.com", creds.Username)
}

func TestAnonymousFlowTransportErrorDoesNotReprovision(t *testing.T) {
	t.Parallel()

	store := credstore.NewMemory()
	store.StoreUserCredentials("user@example.com", "pw")

	transportErr := errors.New("dial tcp: connection refused")
	users := &fakeProvisioner{}
	users.loginUser = func(context.Context, string, string) (*Session, error) {
		return nil, transportErr
	}

	flow := newAnonymousFlow(t, users, store)

	_, err := flow.LogIn(context.Background())
	require.ErrorIs(t, err, transportErr)
	require.EqualValues(t, 0, users.createCalls.Load(), "a network failure must not burn the account")

	creds, ok := store.FetchUserCredentials()
	require.True(t, ok)
	require.Equal(t, "user@example.com", creds.Username)
}

func TestAnonymousFlowFailedPersistenceAbortsLogin(t *testing.T) {
	t.Parallel()

	users := &fakeProvisioner{}
	flow := newAnonymousFlow(t, users, rejectingStore{})

	_, err := flow.LogIn(context.Background())
	require.Error(t, err)
	require.EqualValues(t, 0, users.loginCalls.Load(), "a user whose credentials cannot be kept must not be logged in")
}

func TestAnonymousFlowMigratesEmailDomain(t *testing.T) {
	t.Parallel()

	store := credstore.NewMemory()
	store.StoreUserCredentials("aaaa@legacy.example.org", "pw")

	users := &fakeProvisioner{}
	var migratedTo string
	users.updateEmail = func(_ context.Context, userID, oldEmail, newEmail string) error {
		require.Equal(t, "user-1", userID)
		require.Equal(t, "aaaa@legacy.example.org", oldEmail)
		migratedTo = newEmail
		return nil
	}

	flow := newAnonymousFlow(t, users, store)

	_, err := flow.LogIn(context.Background())
	require.NoError(t, err)
	require.Equal(t, "aaaa@example.com", migratedTo)

	creds, ok := store.FetchUserCredentials()
	require.True(t, ok)
	require.Equal(t, "aaaa@example.com", creds.Username)
	require.Equal(t, "pw", creds.Password)
}

func TestAnonymousFlowMigrationFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	store := credstore.NewMemory()
	store.StoreUserCredentials("aaaa@legacy.example.org", "pw")

	users := &fakeProvisioner{}
	users.updateEmail = func(context.Context, string, string, string) error {
		return errors.New("email already taken")
	}

	flow := newAnonymousFlow(t, users, store)

	s, err := flow.LogIn(context.Background())
	require.NoError(t, err, "a failed domain migration must not fail the login")
	require.NotNil(t, s)

	// The old credentials stay so the migration is retried next time.
	creds, _ := store.FetchUserCredentials()
	require.Equal(t, "aaaa@legacy.example.org", creds.Username)
}

// rejectingStore refuses every write.
type rejectingStore struct{}

func (rejectingStore) StoreRefreshToken(string) bool { return false }

func (rejectingStore) FetchRefreshToken() (string, bool) { return "", false }

func (rejectingStore) StoreUserCredentials(string, string) bool { return false }

func (rejectingStore) FetchUserCredentials() (credstore.Credentials, bool) {
	return credstore.Credentials{}, false
}

func (rejectingStore) RemoveCredentials() {}
