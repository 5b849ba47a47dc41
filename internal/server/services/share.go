package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blockvault/blockvault/internal/common"
	"github.com/blockvault/blockvault/internal/cryptox"
	"github.com/blockvault/blockvault/internal/server/models"
	"github.com/blockvault/blockvault/internal/server/repositories/repomanager"
)

// ShareService manages the grant ledger. A grant carries the file passphrase
// sealed to the recipient's public key; the server handles the plaintext
// passphrase only transiently inside Create and wipes it before returning.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager) *ShareService {
	return &ShareService{db: db, repomanager: m}
}

// maxNoteLen caps the free-text note attached to a grant.
const maxNoteLen = 280

// Create grants recipientName access to fileID by sealing passphrase under
// the recipient's registered public key. The requester must be the owner or
// an admin, the recipient must have a key registered, and expiresAt, when
// set, must lie in the future. The grant records the recipient's key version
// so later rotations are visible in listings.
func (s *ShareService) Create(ctx context.Context, requesterID string, fileID string, recipientName string, passphrase []byte, note string, expiresAt *time.Time) (*models.Share, error) {
	defer common.WipeByteArray(passphrase)

	if len(passphrase) == 0 {
		return nil, common.ErrorValidation
	}
	if len(note) > maxNoteLen {
		return nil, common.ErrorValidation
	}
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return nil, common.ErrorValidation
	}

	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading file: %w", err)
	}

	usersRepo := s.repomanager.Users(s.db)
	requester, err := usersRepo.GetByID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !CanShare(requester, file) {
		return nil, common.ErrorForbidden
	}

	recipient, err := usersRepo.GetUserByLogin(ctx, recipientName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading recipient: %w", err)
	}
	// GetUserByLogin carries credentials only; reload for the key columns.
	recipient, err = usersRepo.GetByID(ctx, recipient.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading recipient: %w", err)
	}
	if recipient.ID == file.UserID {
		// a grant to the owner is meaningless, they hold the passphrase
		return nil, common.ErrorValidation
	}
	if recipient.SharingPubKey == "" {
		return nil, common.ErrorRecipientKeyMissing
	}

	envelope, err := cryptox.SealPassphrase([]byte(recipient.SharingPubKey), passphrase)
	if err != nil {
		return nil, fmt.Errorf("error sealing passphrase: %w", err)
	}

	share := &models.Share{
		FileID:       fileID,
		UserID:       file.UserID,
		RecipientID:  recipient.ID,
		EncryptedKey: envelope,
		KeyVersion:   recipient.KeyVersion,
		Note:         note,
		ExpiresAt:    expiresAt,
	}
	share, err = s.repomanager.Shares(s.db).Create(ctx, share)
	if err != nil {
		return nil, fmt.Errorf("error creating share: %w", err)
	}
	return share, nil
}

// ListOutgoing returns the owner's full grant history, newest first,
// including revoked and expired grants.
func (s *ShareService) ListOutgoing(ctx context.Context, ownerID string, limit int, cursor string) ([]*models.Share, string, error) {
	limit = clampLimit(limit)

	before, beforeID, err := cursorOrZero(cursor)
	if err != nil {
		return nil, "", err
	}

	shares, err := s.repomanager.Shares(s.db).ListOutgoing(ctx, ownerID, limit, before, beforeID)
	if err != nil {
		return nil, "", fmt.Errorf("error listing shares: %w", err)
	}
	return shares, nextShareCursor(shares, limit), nil
}

// ListIncoming returns the grants currently usable by the recipient, newest
// first. Revoked and expired grants never appear here.
func (s *ShareService) ListIncoming(ctx context.Context, recipientID string, limit int, cursor string) ([]*models.Share, string, error) {
	limit = clampLimit(limit)

	before, beforeID, err := cursorOrZero(cursor)
	if err != nil {
		return nil, "", err
	}

	shares, err := s.repomanager.Shares(s.db).ListIncomingActive(ctx, recipientID, time.Now(), limit, before, beforeID)
	if err != nil {
		return nil, "", fmt.Errorf("error listing shares: %w", err)
	}
	return shares, nextShareCursor(shares, limit), nil
}

// Revoke terminally deactivates a grant. Only the granting owner or an admin
// may revoke; revoking an already revoked grant succeeds without effect.
func (s *ShareService) Revoke(ctx context.Context, requesterID string, shareID string) error {
	share, err := s.repomanager.Shares(s.db).GetByID(ctx, shareID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error loading share: %w", err)
	}

	requester, err := s.repomanager.Users(s.db).GetByID(ctx, requesterID)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}
	if !CanRevoke(requester, share) {
		return common.ErrorForbidden
	}

	if err := s.repomanager.Shares(s.db).Revoke(ctx, shareID, time.Now()); err != nil {
		return fmt.Errorf("error revoking share: %w", err)
	}
	return nil
}

func cursorOrZero(cursor string) (time.Time, string, error) {
	if cursor == "" {
		return time.Time{}, "", nil
	}
	return parseCursor(cursor)
}

func nextShareCursor(shares []*models.Share, limit int) string {
	if len(shares) < limit {
		return ""
	}
	last := shares[len(shares)-1]
	return encodeCursor(last.CreatedAt, last.ID)
}
