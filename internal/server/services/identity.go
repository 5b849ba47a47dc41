package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/blockvault/blockvault/internal/cryptox"
	"github.com/blockvault/blockvault/internal/server/models"
	"github.com/blockvault/blockvault/internal/server/repositories/repomanager"
)

// IdentityService manages sharing public keys and profile lookups. A user
// without a registered key can still own files but cannot receive shares.
type IdentityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager) *IdentityService {
	return &IdentityService{db: db, repomanager: m}
}

// RegisterPublicKey validates and stores pemKey as the user's sharing key,
// replacing any previous one, and returns the new key version. Grants sealed
// under the old key are left as they are.
func (s *IdentityService) RegisterPublicKey(ctx context.Context, userID string, pemKey string) (int64, error) {
	if _, err := cryptox.ParseRSAPublicKey([]byte(pemKey)); err != nil {
		return 0, err
	}
	version, err := s.repomanager.Users(s.db).SetPublicKey(ctx, userID, pemKey)
	if err != nil {
		return 0, fmt.Errorf("error storing public key: %w", err)
	}
	return version, nil
}

// RemovePublicKey clears the user's sharing key. Removing an absent key is
// not an error.
func (s *IdentityService) RemovePublicKey(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).RemovePublicKey(ctx, userID); err != nil {
		return fmt.Errorf("error removing public key: %w", err)
	}
	return nil
}

// GetProfile returns the user's row including the sharing key state.
func (s *IdentityService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// GetPublicKey returns the user's sharing key PEM and its version. An empty
// PEM means no key is registered.
func (s *IdentityService) GetPublicKey(ctx context.Context, userID string) (string, int64, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	return u.SharingPubKey, u.KeyVersion, nil
}
