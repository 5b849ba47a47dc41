package models

import "time"

// File describes server-side metadata for one uploaded ciphertext blob.
// The content itself lives in object storage under StorageKey and is never
// decrypted server-side. Owner, StorageKey and Sha256 are immutable after
// creation.
type File struct {
	ID     string
	UserID string
	// Name is the client-supplied original file name (display only).
	Name string
	// Folder is an optional display grouping label; empty means unfiled.
	Folder string
	// StorageKey is the object-storage key (path) of the ciphertext blob.
	StorageKey string
	// Sha256 is the hex digest of the original plaintext, client-reported.
	// Never verified against the ciphertext: the server cannot, it never
	// sees plaintext.
	Sha256 string
	// SizeBytes is the original plaintext size, client-reported.
	SizeBytes int64
	// AnchorRef is an advisory external anchoring reference; it never
	// gates access.
	AnchorRef string
	CreatedAt time.Time
}
