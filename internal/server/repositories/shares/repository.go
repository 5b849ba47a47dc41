package shares

import (
	"context"
	"time"

	"github.com/blockvault/blockvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, share *models.Share) (*models.Share, error)
	GetByID(ctx context.Context, id string) (*models.Share, error)
	// ListOutgoing returns grants created by ownerID, newest first, full
	// history (revoked and expired included). Keyset pagination as in the
	// files repository.
	ListOutgoing(ctx context.Context, ownerID string, limit int, before time.Time, beforeID string) ([]*models.Share, error)
	// ListIncomingActive returns grants for recipientID that are active at
	// instant now; revoked and expired grants are filtered out server-side.
	ListIncomingActive(ctx context.Context, recipientID string, now time.Time, limit int, before time.Time, beforeID string) ([]*models.Share, error)
	// Revoke stamps revoked_at on a not-yet-revoked grant. Revoking an
	// already revoked grant affects zero rows and reports success, making
	// the operation idempotent.
	Revoke(ctx context.Context, id string, at time.Time) error
	// HasActiveForFileAndRecipient reports whether any active grant gives
	// recipientID access to fileID at instant now.
	HasActiveForFileAndRecipient(ctx context.Context, fileID, recipientID string, now time.Time) (bool, error)
	// DeleteByFileID removes all grants for a file; used by the cascade on
	// file deletion inside the same transaction.
	DeleteByFileID(ctx context.Context, fileID string) error
}
