package credstore

import "sync"

// Memory is a process-local Store. Nothing survives a restart, which makes
// it suitable for tests and for host applications that manage persistence
// themselves.
type Memory struct {
	mu           sync.Mutex
	refreshToken string
	hasToken     bool
	creds        Credentials
	hasCreds     bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) StoreRefreshToken(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshToken = token
	m.hasToken = true
	return true
}

func (m *Memory) FetchRefreshToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshToken, m.hasToken
}

func (m *Memory) StoreUserCredentials(username, password string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{Username: username, Password: password}
	m.hasCreds = true
	return true
}

func (m *Memory) FetchUserCredentials() (Credentials, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, m.hasCreds
}

func (m *Memory) RemoveCredentials() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshToken = ""
	m.hasToken = false
	m.creds = Credentials{}
	m.hasCreds = false
}
