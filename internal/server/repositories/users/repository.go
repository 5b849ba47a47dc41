package users

import (
	"context"

	"github.com/blockvault/blockvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// SetPublicKey stores pem as the user's sharing key, replacing any prior
	// one and bumping key_version. Returns the new version.
	SetPublicKey(ctx context.Context, userID string, pem string) (int64, error)
	// RemovePublicKey clears the sharing key; no error if none was set.
	RemovePublicKey(ctx context.Context, userID string) error
	// SetAdmin flips the admin flag for a username; missing users are ignored.
	SetAdmin(ctx context.Context, userName string, isAdmin bool) error
}
