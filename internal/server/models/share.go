package models

import "time"

// Share grant status labels as shown in owner history.
const (
	ShareStatusActive  = "active"
	ShareStatusRevoked = "revoked"
	ShareStatusExpired = "expired"
)

// Share is a grant authorizing one recipient to obtain the encrypted
// passphrase for one file. The passphrase is stored only as an RSA-OAEP
// envelope sealed to the recipient's public key as registered at grant time;
// the plaintext never touches persistent storage.
type Share struct {
	ID          string
	FileID      string
	UserID      string // the granting owner
	RecipientID string
	// EncryptedKey is the RSA-OAEP ciphertext of the file passphrase.
	EncryptedKey []byte
	// KeyVersion is the recipient's key version the envelope was sealed
	// under. If the recipient has rotated since, the envelope is
	// permanently undecryptable with the new key.
	KeyVersion int64
	Note       string
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	// RevokedAt set means the grant is inactive; revocation is terminal.
	RevokedAt *time.Time
}

// Active reports whether the grant authorizes access at instant now:
// not revoked, and either non-expiring or not yet expired.
func (s *Share) Active(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Status returns the derived state label for instant now. Revoked wins over
// expired when both apply, matching the order transitions can occur in.
func (s *Share) Status(now time.Time) string {
	if s.RevokedAt != nil {
		return ShareStatusRevoked
	}
	if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
		return ShareStatusExpired
	}
	return ShareStatusActive
}
