// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an authenticated principal. The sharing public key is optional:
// a user without one can own and receive nothing via shares until a key is
// registered.
type User struct {
	ID       string
	UserName string
	Salt     []byte
	Verifier []byte
	IsAdmin  bool

	// SharingPubKey is the PEM-encoded RSA public key passphrase envelopes
	// are sealed to. Empty means no key registered.
	SharingPubKey string
	// KeyVersion increments every time the key is (re)registered. Grants
	// record the version they were sealed under; rotation does not
	// re-encrypt them.
	KeyVersion   int64
	KeyUpdatedAt *time.Time

	CreatedAt time.Time
}
