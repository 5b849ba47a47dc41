// Package keystore persists the client's RSA sharing key and session tokens
// in a local SQLite database. Single-user: both tables hold at most one row.
package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blockvault/blockvault/internal/client/keystore/migrations"
	"github.com/blockvault/blockvault/internal/common"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Session is the stored login state for the current user.
type Session struct {
	Username     string
	AccessToken  string
	RefreshToken string
}

type Keystore struct {
	db *sql.DB
}

// Open opens (creating if needed) the keystore database at path and applies
// pending migrations.
func Open(ctx context.Context, path string) (*Keystore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening keystore: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("keystore migration error: %w", err)
	}

	return &Keystore{db: db}, nil
}

func (k *Keystore) Close() error { return k.db.Close() }

// SavePrivateKey stores the PEM-encoded RSA private key, replacing any
// previous one.
func (k *Keystore) SavePrivateKey(ctx context.Context, privPEM []byte) error {
	query := `INSERT INTO keys (id, private_key) VALUES (1, ?)
	          ON CONFLICT(id) DO UPDATE SET private_key = excluded.private_key`

	if _, err := k.db.ExecContext(ctx, query, string(privPEM)); err != nil {
		return fmt.Errorf("error saving private key: %w", err)
	}
	return nil
}

// PrivateKey returns the stored PEM key, or ErrorNotFound if none was saved.
func (k *Keystore) PrivateKey(ctx context.Context) ([]byte, error) {
	var pem string
	err := k.db.QueryRowContext(ctx, `SELECT private_key FROM keys WHERE id = 1`).Scan(&pem)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading private key: %w", err)
	}
	return []byte(pem), nil
}

// SaveSession stores the login state, replacing any previous session.
func (k *Keystore) SaveSession(ctx context.Context, s *Session) error {
	query := `INSERT INTO session (id, username, access_token, refresh_token, updated_at)
	          VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
	          ON CONFLICT(id) DO UPDATE SET
	            username = excluded.username,
	            access_token = excluded.access_token,
	            refresh_token = excluded.refresh_token,
	            updated_at = CURRENT_TIMESTAMP`

	if _, err := k.db.ExecContext(ctx, query, s.Username, s.AccessToken, s.RefreshToken); err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}
	return nil
}

// Session returns the stored login state, or ErrorNotFound if logged out.
func (k *Keystore) Session(ctx context.Context) (*Session, error) {
	s := &Session{}
	err := k.db.QueryRowContext(ctx,
		`SELECT username, access_token, refresh_token FROM session WHERE id = 1`).
		Scan(&s.Username, &s.AccessToken, &s.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading session: %w", err)
	}
	return s, nil
}

// ClearSession removes the stored login state. Clearing an absent session is
// not an error.
func (k *Keystore) ClearSession(ctx context.Context) error {
	if _, err := k.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("error clearing session: %w", err)
	}
	return nil
}
