// Package shares provides a PostgreSQL-backed repository for share grants:
// the records authorizing one recipient to obtain the encrypted passphrase
// for one file.
package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const shareColumns = `id, file_id, user_id, recipient_id, encrypted_key, key_version, COALESCE(note, ''), expires_at, created_at, revoked_at`

func scanShare(row interface{ Scan(...any) error }, s *models.Share) error {
	return row.Scan(&s.ID, &s.FileID, &s.UserID, &s.RecipientID, &s.EncryptedKey,
		&s.KeyVersion, &s.Note, &s.ExpiresAt, &s.CreatedAt, &s.RevokedAt)
}

func (r *PostgresRepository) Create(ctx context.Context, share *models.Share) (*models.Share, error) {
	query := `
		INSERT INTO shares (file_id, user_id, recipient_id, encrypted_key, key_version, note, expires_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		share.FileID, share.UserID, share.RecipientID, share.EncryptedKey,
		share.KeyVersion, share.Note, share.ExpiresAt).
		Scan(&share.ID, &share.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return share, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE id = $1`

	share := &models.Share{}
	if err := scanShare(r.db.QueryRowContext(ctx, query, id), share); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return share, nil
}

func (r *PostgresRepository) ListOutgoing(ctx context.Context, ownerID string, limit int, before time.Time, beforeID string) ([]*models.Share, error) {
	query := `
		SELECT ` + shareColumns + `
		FROM shares
		WHERE user_id = $1 AND ($2::timestamptz IS NULL OR (created_at, id) < ($2, $3::uuid))
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`
	return r.list(ctx, query, ownerID, limit, before, beforeID)
}

func (r *PostgresRepository) ListIncomingActive(ctx context.Context, recipientID string, now time.Time, limit int, before time.Time, beforeID string) ([]*models.Share, error) {
	query := `
		SELECT ` + shareColumns + `
		FROM shares
		WHERE recipient_id = $1
		  AND revoked_at IS NULL
		  AND (expires_at IS NULL OR expires_at > $5)
		  AND ($2::timestamptz IS NULL OR (created_at, id) < ($2, $3::uuid))
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`
	var beforeArg, beforeIDArg any
	if !before.IsZero() {
		beforeArg, beforeIDArg = before, beforeID
	}

	rows, err := r.db.QueryContext(ctx, query, recipientID, beforeArg, beforeIDArg, limit, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select shares: %w", err)
	}
	return collectShares(rows)
}

func (r *PostgresRepository) list(ctx context.Context, query string, principal string, limit int, before time.Time, beforeID string) ([]*models.Share, error) {
	var beforeArg, beforeIDArg any
	if !before.IsZero() {
		beforeArg, beforeIDArg = before, beforeID
	}

	rows, err := r.db.QueryContext(ctx, query, principal, beforeArg, beforeIDArg, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select shares: %w", err)
	}
	return collectShares(rows)
}

func collectShares(rows *sql.Rows) ([]*models.Share, error) {
	defer rows.Close()

	var result []*models.Share
	for rows.Next() {
		var item models.Share
		if err := scanShare(rows, &item); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE shares SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to revoke share: %w", err)
	}
	return nil
}

func (r *PostgresRepository) HasActiveForFileAndRecipient(ctx context.Context, fileID, recipientID string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM shares
			WHERE file_id = $1 AND recipient_id = $2
			  AND revoked_at IS NULL
			  AND (expires_at IS NULL OR expires_at > $3)
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, fileID, recipientID, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) DeleteByFileID(ctx context.Context, fileID string) error {
	query := `DELETE FROM shares WHERE file_id = $1`
	if _, err := r.db.ExecContext(ctx, query, fileID); err != nil {
		return fmt.Errorf("failed to delete shares: %w", err)
	}
	return nil
}
