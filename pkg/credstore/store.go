// Package credstore defines how the session flows persist secrets across
// application restarts: the refresh token for the server flow and the
// generated account credentials for the anonymous flow.
//
// On iOS and Android the SDKs put these values into the platform keychain.
// This package exposes the same contract as an interface so host
// applications can plug in whatever secure storage their platform offers,
// and ships a memory store for tests, a SQLite store for desktop and server
// environments and an encrypted flat-file store for everything else.
package credstore

// Credentials is a stored username/password pair for an anonymous user
// account.
type Credentials struct {
	Username string
	Password string
}

// Store persists and retrieves the secrets needed to re-establish a session
// without user interaction.
//
// Store and fetch operations report success with a bool instead of an error:
// storage backends such as a keychain can deny access without that being a
// programming error, and the session flows treat a failed fetch the same as
// an absent value.
type Store interface {
	// StoreRefreshToken persists the refresh token, replacing any previous
	// one. Reports whether the value was stored.
	StoreRefreshToken(token string) bool

	// FetchRefreshToken returns the stored refresh token, if any.
	FetchRefreshToken() (string, bool)

	// StoreUserCredentials persists the anonymous user credentials,
	// replacing any previous pair. Reports whether the values were stored.
	StoreUserCredentials(username, password string) bool

	// FetchUserCredentials returns the stored user credentials, if any.
	FetchUserCredentials() (Credentials, bool)

	// RemoveCredentials deletes the refresh token and the user credentials.
	// Called on logout and after irrecoverable authentication failures.
	RemoveCredentials()
}
