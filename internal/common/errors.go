// Package common defines shared constants and sentinel errors used across
// client and server layers of BlockVault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorForbidden means the caller is authenticated but not entitled
	// to the entity it is acting on.
	ErrorForbidden = errors.New("forbidden")

	// ErrorValidation covers malformed input: bad hash length, non-future
	// expiry, malformed PEM and the like.
	ErrorValidation = errors.New("validation error")

	// ErrorRecipientKeyMissing means a share target has no registered
	// sharing public key.
	ErrorRecipientKeyMissing = errors.New("recipient has no registered public key")

	// ErrorInvalidKeyFormat means a submitted public key did not parse as
	// a well-formed RSA key of sufficient size.
	ErrorInvalidKeyFormat = errors.New("invalid public key format")

	// ErrorStorageUnavailable means the datastore or blob backend is
	// unreachable; callers may retry.
	ErrorStorageUnavailable = errors.New("storage unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
