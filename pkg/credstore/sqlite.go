package credstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/gini/gini-sdk-go/pkg/credstore/migrations"
	"github.com/gini/gini-sdk-go/pkg/slogx"
)

// Credential row names. One row per secret.
const (
	keyRefreshToken = "refresh_token"
	keyUsername     = "username"
	keyPassword     = "password"
)

// SQLite is a Store backed by a local SQLite database. It stands in for the
// platform keychain on desktop and server environments where no keychain
// exists.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenSQLite opens (or creates) the credential database at the given DSN and
// applies any pending schema migrations.
func OpenSQLite(dsn string, log *slog.Logger) (*SQLite, error) {
	if log == nil {
		log = slogx.Discard()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	s := &SQLite{db: db, log: log}
	if err := s.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// applyMigrations applies any pending schema migrations using the embedded
// migration files which are compiled into the binary.
func (s *SQLite) applyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", source, "", driver)
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLite) StoreRefreshToken(token string) bool {
	return s.put(keyRefreshToken, token)
}

func (s *SQLite) FetchRefreshToken() (string, bool) {
	return s.get(keyRefreshToken)
}

func (s *SQLite) StoreUserCredentials(username, password string) bool {
	return s.put(keyUsername, username) && s.put(keyPassword, password)
}

func (s *SQLite) FetchUserCredentials() (Credentials, bool) {
	username, ok := s.get(keyUsername)
	if !ok {
		return Credentials{}, false
	}
	password, ok := s.get(keyPassword)
	if !ok {
		return Credentials{}, false
	}
	return Credentials{Username: username, Password: password}, true
}

func (s *SQLite) RemoveCredentials() {
	if _, err := s.db.ExecContext(context.Background(),
		`DELETE FROM credentials`); err != nil {
		s.log.Warn("failed to remove stored credentials", "error", err)
	}
}

func (s *SQLite) put(name, value string) bool {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO credentials (name, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		name, value)
	if err != nil {
		s.log.Warn("failed to store credential", "name", name, "error", err)
		return false
	}
	return true
}

func (s *SQLite) get(name string) (string, bool) {
	var value string
	err := s.db.QueryRowContext(context.Background(),
		`SELECT value FROM credentials WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.log.Warn("failed to fetch credential", "name", name, "error", err)
		return "", false
	}
	return value, true
}
