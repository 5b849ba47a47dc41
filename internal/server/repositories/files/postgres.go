// Package files provides a PostgreSQL-backed repository for file metadata.
// Ciphertext blobs live in object storage; only their keys are stored here.
package files

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

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (user_id, name, storage_key, sha256, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.UserID, file.Name, file.StorageKey, file.Sha256, file.SizeBytes).
		Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `
		SELECT id, user_id, name, COALESCE(folder, ''), storage_key, sha256, size_bytes, COALESCE(anchor_ref, ''), created_at
		FROM files
		WHERE id = $1
	`
	file := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&file.ID, &file.UserID, &file.Name, &file.Folder, &file.StorageKey,
		&file.Sha256, &file.SizeBytes, &file.AnchorRef, &file.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

// ListByOwner pages with a keyset over (created_at, id) descending so pages
// stay stable under concurrent inserts: no duplicates, no skips.
func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string, limit int, before time.Time, beforeID string) ([]*models.File, error) {
	query := `
		SELECT id, user_id, name, COALESCE(folder, ''), storage_key, sha256, size_bytes, COALESCE(anchor_ref, ''), created_at
		FROM files
		WHERE user_id = $1 AND ($2::timestamptz IS NULL OR (created_at, id) < ($2, $3::uuid))
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`
	var beforeArg any
	var beforeIDArg any
	if before.IsZero() {
		beforeArg, beforeIDArg = nil, nil
	} else {
		beforeArg, beforeIDArg = before, beforeID
	}

	rows, err := r.db.QueryContext(ctx, query, userID, beforeArg, beforeIDArg, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var item models.File
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.Folder, &item.StorageKey,
			&item.Sha256, &item.SizeBytes, &item.AnchorRef, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// UpdateMeta changes the mutable display columns. A nil pointer leaves the
// column alone; an empty folder string clears it to NULL.
func (r *PostgresRepository) UpdateMeta(ctx context.Context, id string, name *string, folder *string) error {
	query := `
		UPDATE files
		SET name = COALESCE($2, name),
		    folder = CASE
		        WHEN $3::text IS NULL THEN folder
		        WHEN $3 = '' THEN NULL
		        ELSE $3
		    END
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, name, folder)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ListFolders returns the owner's distinct folder names, case-insensitively
// sorted. Unfiled rows do not contribute.
func (r *PostgresRepository) ListFolders(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT folder
		FROM files
		WHERE user_id = $1 AND folder IS NOT NULL
		GROUP BY folder
		ORDER BY lower(folder)
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SetAnchorRef(ctx context.Context, id string, anchorRef string) error {
	query := `UPDATE files SET anchor_ref = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, anchorRef); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
