// Package common defines shared constants and sentinel errors used across
// the chirp server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Auth errors. ErrInvalidCredentials is returned both for an unknown
	// identifier and for a failed password check, so the two cases stay
	// indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid user credentials")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrorForbidden        = errors.New("forbidden")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")

	// ErrSessionRevoked signals refresh-token reuse after rotation or after
	// logout. The session is never re-issued on this path.
	ErrSessionRevoked = errors.New("session revoked")

	// Media errors.
	ErrUploadFailed = errors.New("upload failed")
)
