package models

import "time"

// RefreshToken is an opaque one-shot credential for rotating a session's
// token pair. Tokens are consumed on use.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at instant now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.Expires.Before(now)
}
