package credstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/gini/gini-sdk-go/pkg/cryptox"
	"github.com/gini/gini-sdk-go/pkg/slogx"
)

// File is a Store backed by a single encrypted file. The payload is sealed
// with a key derived from the passphrase (Argon2id + AES-256-GCM), so the
// secrets are unreadable without the passphrase even if the file leaks.
type File struct {
	path       string
	passphrase []byte
	log        *slog.Logger

	mu sync.Mutex
}

// filePayload is the JSON document sealed into the file.
type filePayload struct {
	RefreshToken *string `json:"refresh_token,omitempty"`
	Username     *string `json:"username,omitempty"`
	Password     *string `json:"password,omitempty"`
}

// NewFile creates a file-backed store at the given path. The file is created
// lazily on the first write with mode 0600.
func NewFile(path, passphrase string, log *slog.Logger) *File {
	if log == nil {
		log = slogx.Discard()
	}
	return &File{path: path, passphrase: []byte(passphrase), log: log}
}

func (f *File) StoreRefreshToken(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.update(func(p *filePayload) {
		p.RefreshToken = &token
	})
}

func (f *File) FetchRefreshToken() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, err := f.load()
	if err != nil || p.RefreshToken == nil {
		return "", false
	}
	return *p.RefreshToken, true
}

func (f *File) StoreUserCredentials(username, password string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.update(func(p *filePayload) {
		p.Username = &username
		p.Password = &password
	})
}

func (f *File) FetchUserCredentials() (Credentials, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, err := f.load()
	if err != nil || p.Username == nil || p.Password == nil {
		return Credentials{}, false
	}
	return Credentials{Username: *p.Username, Password: *p.Password}, true
}

func (f *File) RemoveCredentials() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.log.Warn("failed to remove credential file", "path", f.path, "error", err)
	}
}

// load reads and unseals the payload. A missing file yields an empty payload.
func (f *File) load() (filePayload, error) {
	var p filePayload

	sealed, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		f.log.Warn("failed to read credential file", "path", f.path, "error", err)
		return p, err
	}

	plaintext, err := cryptox.OpenWithPassphrase(f.passphrase, sealed)
	if err != nil {
		f.log.Warn("failed to unseal credential file", "path", f.path, "error", err)
		return p, err
	}

	if err := json.Unmarshal(plaintext, &p); err != nil {
		return filePayload{}, err
	}
	return p, nil
}

func (f *File) update(mutate func(*filePayload)) bool {
	p, err := f.load()
	if err != nil {
		// An unreadable file is replaced rather than keeping the store
		// permanently broken.
		p = filePayload{}
	}
	mutate(&p)

	plaintext, err := json.Marshal(p)
	if err != nil {
		return false
	}

	sealed, err := cryptox.SealWithPassphrase(f.passphrase, plaintext)
	if err != nil {
		f.log.Warn("failed to seal credential file", "error", err)
		return false
	}

	if err := os.WriteFile(f.path, sealed, 0o600); err != nil {
		f.log.Warn("failed to write credential file", "path", f.path, "error", err)
		return false
	}
	return true
}
