// Package users declares the repository contract for account and session
// state persistence.
package users

import (
	"context"

	"github.com/dsmelov/chirp/internal/models"
)

// Repository defines operations over user accounts and their session state.
// The refresh-token column is the single active session reference per user.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByIdentifier resolves a user by username or email. The identifier
	// is matched case-insensitively. Returns common.ErrorNotFound if absent.
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)

	GetByID(ctx context.Context, id string) (*models.User, error)

	UpdateProfile(ctx context.Context, id string, fullName string, email string) (*models.User, error)

	UpdatePasswordHash(ctx context.Context, id string, hash string) error

	// UpdateAvatar / UpdateCover record a new media reference. They must
	// commit before the previous remote object is deleted.
	UpdateAvatar(ctx context.Context, id string, key string, url string) (*models.User, error)
	UpdateCover(ctx context.Context, id string, key string, url string) (*models.User, error)

	// SetSessionToken overwrites the stored refresh-token reference,
	// revoking any previous session.
	SetSessionToken(ctx context.Context, id string, token string) error

	// RotateSessionToken atomically replaces current with next
	// (compare-and-swap). Returns common.ErrSessionRevoked when the stored
	// value no longer equals current, i.e. another rotation won the race or
	// the session was cleared.
	RotateSessionToken(ctx context.Context, id string, current string, next string) error

	// ClearSessionToken removes the stored reference. Outstanding refresh
	// tokens become invalid immediately.
	ClearSessionToken(ctx context.Context, id string) error
}
