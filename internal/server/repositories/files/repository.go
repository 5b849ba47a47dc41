package files

import (
	"context"
	"time"

	"github.com/blockvault/blockvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	// ListByOwner returns up to limit files owned by userID, newest first.
	// A zero before time means "from the top"; otherwise only rows strictly
	// older than (before, beforeID) in (created_at, id) order are returned.
	ListByOwner(ctx context.Context, userID string, limit int, before time.Time, beforeID string) ([]*models.File, error)
	// UpdateMeta changes the display name and/or folder. Nil pointers leave
	// the column untouched; an empty folder string clears it.
	UpdateMeta(ctx context.Context, id string, name *string, folder *string) error
	// ListFolders returns the owner's distinct folder names sorted
	// case-insensitively.
	ListFolders(ctx context.Context, userID string) ([]string, error)
	// Delete removes the file row. The caller is responsible for running it
	// inside the same transaction as the share cascade.
	Delete(ctx context.Context, id string) error
	// SetAnchorRef records the advisory anchoring reference.
	SetAnchorRef(ctx context.Context, id string, anchorRef string) error
}
