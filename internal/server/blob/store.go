// Package blob abstracts ciphertext blob storage. The server only ever moves
// opaque encrypted bytes in and out; nothing here can see plaintext.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Store is the ciphertext blob backend used by the vault service.
type Store interface {
	// Put writes the blob under key.
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	// PresignGet returns a temporary URL the client can GET the blob from.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
	// Exists reports whether a blob is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the blob; deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// RandomStorageKey produces a date-bucketed object key for a new upload.
func RandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("vault/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
