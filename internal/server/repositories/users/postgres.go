// Package users provides a PostgreSQL-backed repository for principals and
// their registered sharing public keys.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blockvault/blockvault/internal/common"
	"github.com/blockvault/blockvault/internal/dbx"
	"github.com/blockvault/blockvault/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, salt, master_key_verifier)
         VALUES ($1, $2, $3)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Salt, user.Verifier).Scan(&user.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, master_key_verifier, salt, is_admin FROM users
		 WHERE username = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userName).Scan(
		&user.ID, &user.UserName, &user.Verifier, &user.Salt, &user.IsAdmin)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, username, is_admin, COALESCE(sharing_pubkey, ''), key_version, key_updated_at, created_at
		 FROM users
		 WHERE id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.UserName, &user.IsAdmin,
		&user.SharingPubKey, &user.KeyVersion, &user.KeyUpdatedAt, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) SetPublicKey(ctx context.Context, userID string, pem string) (int64, error) {
	query :=
		`UPDATE users
		 SET sharing_pubkey = $2, key_version = key_version + 1, key_updated_at = now()
		 WHERE id = $1
		 RETURNING key_version
		 `

	var version int64
	err := r.db.QueryRowContext(ctx, query, userID, pem).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return version, nil
}

func (r *PostgresRepository) RemovePublicKey(ctx context.Context, userID string) error {
	query :=
		`UPDATE users
		 SET sharing_pubkey = NULL, key_updated_at = now()
		 WHERE id = $1 AND sharing_pubkey IS NOT NULL
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetAdmin(ctx context.Context, userName string, isAdmin bool) error {
	query := `UPDATE users SET is_admin = $2 WHERE username = $1`

	if _, err := r.db.ExecContext(ctx, query, userName, isAdmin); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
