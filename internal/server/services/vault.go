package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blockvault/blockvault/internal/common"
	"github.com/blockvault/blockvault/internal/cryptox"
	"github.com/blockvault/blockvault/internal/dbx"
	"github.com/blockvault/blockvault/internal/logging"
	"github.com/blockvault/blockvault/internal/server/anchor"
	"github.com/blockvault/blockvault/internal/server/blob"
	"github.com/blockvault/blockvault/internal/server/models"
	"github.com/blockvault/blockvault/internal/server/repositories/repomanager"
)

const (
	downloadURLValidity = 15 * time.Minute
	anchorTimeout       = 10 * time.Second

	maxFileNameLen = 255
	maxFolderLen   = 120
)

// VaultService stores and serves encrypted file blobs. It never sees
// plaintext: ciphertext goes straight to object storage, the hash and size
// are client-reported, and downloads are presigned URLs into the blob store.
type VaultService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	anchorer    anchor.Anchorer
	logger      logging.Logger
}

func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, blobs blob.Store, anchorer anchor.Anchorer, logger logging.Logger) *VaultService {
	return &VaultService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		anchorer:    anchorer,
		logger:      logger,
	}
}

// Upload stores the ciphertext blob and inserts the file record. The sha256
// must be 64 hex characters and the reported plaintext size positive.
// Anchoring runs in the background after the record exists; the returned
// record therefore has an empty AnchorRef.
func (s *VaultService) Upload(ctx context.Context, ownerID string, name string, ciphertext io.Reader, ciphertextSize int64, sha256hex string, sizeBytes int64) (*models.File, error) {
	if name == "" || !cryptox.ValidSha256Hex(sha256hex) || sizeBytes <= 0 {
		return nil, common.ErrorValidation
	}

	key := blob.RandomStorageKey()
	if err := s.blobs.Put(ctx, key, ciphertext, ciphertextSize); err != nil {
		s.logger.Error(ctx, "blob upload failed", "key", key, "error", err)
		return nil, common.ErrorStorageUnavailable
	}

	file := &models.File{
		UserID:     ownerID,
		Name:       name,
		StorageKey: key,
		Sha256:     sha256hex,
		SizeBytes:  sizeBytes,
	}
	file, err := s.repomanager.Files(s.db).Create(ctx, file)
	if err != nil {
		// the blob has no record pointing at it anymore; clean up best-effort
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Warn(ctx, "orphan blob cleanup failed", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("error creating file record: %w", err)
	}

	go s.anchorFile(file.ID, sha256hex, sizeBytes)

	return file, nil
}

// anchorFile records an advisory anchoring reference for an uploaded file.
// It runs detached from the request with its own deadline; failures are
// logged and never affect the upload.
func (s *VaultService) anchorFile(fileID string, sha256hex string, sizeBytes int64) {
	ctx, cancel := context.WithTimeout(context.Background(), anchorTimeout)
	defer cancel()

	ref, err := s.anchorer.Anchor(ctx, sha256hex, sizeBytes, fileID)
	if err != nil {
		s.logger.Warn(ctx, "anchoring failed", "file_id", fileID, "error", err)
		return
	}
	if err := s.repomanager.Files(s.db).SetAnchorRef(ctx, fileID, ref); err != nil {
		s.logger.Warn(ctx, "failed to record anchor ref", "file_id", fileID, "error", err)
	}
}

// List returns the owner's files, newest first, with an opaque cursor for
// the next page. An empty next cursor means the listing is exhausted.
func (s *VaultService) List(ctx context.Context, ownerID string, limit int, cursor string) ([]*models.File, string, error) {
	limit = clampLimit(limit)

	var before time.Time
	var beforeID string
	if cursor != "" {
		var err error
		before, beforeID, err = parseCursor(cursor)
		if err != nil {
			return nil, "", err
		}
	}

	files, err := s.repomanager.Files(s.db).ListByOwner(ctx, ownerID, limit, before, beforeID)
	if err != nil {
		return nil, "", fmt.Errorf("error listing files: %w", err)
	}

	next := ""
	if len(files) == limit {
		last := files[len(files)-1]
		next = encodeCursor(last.CreatedAt, last.ID)
	}
	return files, next, nil
}

// UpdateMeta renames the file and/or moves it between folders. Only display
// metadata changes; the stored blob, hash, and owner are untouched. A nil
// pointer leaves the field alone, an empty folder string moves the file out
// of its folder. The updated record is returned.
func (s *VaultService) UpdateMeta(ctx context.Context, requesterID string, fileID string, name *string, folder *string) (*models.File, error) {
	file, requester, err := s.loadFileAndUser(ctx, fileID, requesterID)
	if err != nil {
		return nil, err
	}
	if !CanWrite(requester, file) {
		return nil, common.ErrorForbidden
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" || len(trimmed) > maxFileNameLen {
			return nil, common.ErrorValidation
		}
		name = &trimmed
	}
	if folder != nil {
		trimmed := strings.TrimSpace(*folder)
		if len(trimmed) > maxFolderLen {
			return nil, common.ErrorValidation
		}
		folder = &trimmed
	}
	if name == nil && folder == nil {
		return file, nil
	}

	repo := s.repomanager.Files(s.db)
	if err := repo.UpdateMeta(ctx, fileID, name, folder); err != nil {
		return nil, fmt.Errorf("error updating file: %w", err)
	}
	updated, err := repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("error reloading file: %w", err)
	}
	return updated, nil
}

// ListFolders returns the distinct folder names of the owner's files.
func (s *VaultService) ListFolders(ctx context.Context, ownerID string) ([]string, error) {
	folders, err := s.repomanager.Files(s.db).ListFolders(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing folders: %w", err)
	}
	return folders, nil
}

// VerifyResult reports the stored state backing a file record.
type VerifyResult struct {
	FileID    string
	HasBlob   bool
	AnchorRef string
	Sha256    string
}

// Verify checks that the ciphertext blob behind a file record is still in
// object storage and reports it together with the recorded hash and anchor
// reference. Only the owner may verify; for everyone else the file does not
// exist.
func (s *VaultService) Verify(ctx context.Context, requesterID string, fileID string) (*VerifyResult, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	if file.UserID != requesterID {
		return nil, common.ErrorNotFound
	}

	hasBlob, err := s.blobs.Exists(ctx, file.StorageKey)
	if err != nil {
		s.logger.Error(ctx, "blob existence check failed", "key", file.StorageKey, "error", err)
		return nil, common.ErrorStorageUnavailable
	}
	return &VerifyResult{
		FileID:    file.ID,
		HasBlob:   hasBlob,
		AnchorRef: file.AnchorRef,
		Sha256:    file.Sha256,
	}, nil
}

// Get returns the file record if the requester may read it.
func (s *VaultService) Get(ctx context.Context, requesterID string, fileID string) (*models.File, error) {
	file, requester, err := s.loadFileAndUser(ctx, fileID, requesterID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRead(ctx, requester, file); err != nil {
		return nil, err
	}
	return file, nil
}

// Download returns a presigned GET URL for the ciphertext blob, gated by the
// same read decision as Get. The URL expires on its own; nothing is revoked
// retroactively.
func (s *VaultService) Download(ctx context.Context, requesterID string, fileID string) (string, error) {
	file, requester, err := s.loadFileAndUser(ctx, fileID, requesterID)
	if err != nil {
		return "", err
	}
	if err := s.requireRead(ctx, requester, file); err != nil {
		return "", err
	}

	url, err := s.blobs.PresignGet(ctx, file.StorageKey, downloadURLValidity)
	if err != nil {
		s.logger.Error(ctx, "presign failed", "key", file.StorageKey, "error", err)
		return "", common.ErrorStorageUnavailable
	}
	return url, nil
}

// Delete removes the file record and every grant for it in one transaction,
// then deletes the blob best-effort. Only the owner or an admin may delete.
func (s *VaultService) Delete(ctx context.Context, requesterID string, fileID string) error {
	file, requester, err := s.loadFileAndUser(ctx, fileID, requesterID)
	if err != nil {
		return err
	}
	if !CanDelete(requester, file) {
		return common.ErrorForbidden
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Shares(tx).DeleteByFileID(ctx, fileID); err != nil {
			return fmt.Errorf("error deleting shares: %w", err)
		}
		if err := s.repomanager.Files(tx).Delete(ctx, fileID); err != nil {
			return fmt.Errorf("error deleting file: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, file.StorageKey); err != nil {
		s.logger.Warn(ctx, "blob delete failed", "key", file.StorageKey, "error", err)
	}
	return nil
}

func (s *VaultService) loadFileAndUser(ctx context.Context, fileID, userID string) (*models.File, *models.User, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("error loading file: %w", err)
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading user: %w", err)
	}
	return file, user, nil
}

func (s *VaultService) requireRead(ctx context.Context, requester *models.User, file *models.File) error {
	granted := false
	if requester.ID != file.UserID {
		var err error
		granted, err = s.repomanager.Shares(s.db).HasActiveForFileAndRecipient(ctx, file.ID, requester.ID, time.Now())
		if err != nil {
			return fmt.Errorf("error checking grants: %w", err)
		}
	}
	if !CanRead(requester, file, granted) {
		return common.ErrorForbidden
	}
	return nil
}
