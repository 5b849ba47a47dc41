// Package anchor records file hashes on an external immutable registry.
// Anchoring is strictly advisory: it never gates access and its failures
// never surface as request errors.
package anchor

import "context"

// Anchorer submits a file digest for anchoring and returns an opaque
// transaction reference.
type Anchorer interface {
	Anchor(ctx context.Context, sha256hex string, sizeBytes int64, ref string) (string, error)
}
