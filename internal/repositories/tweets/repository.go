// Package tweets declares the repository contract for tweet persistence.
package tweets

import (
	"context"

	"github.com/dsmelov/chirp/internal/models"
)

// Repository defines operations over tweets. Image key/url updates must be
// committed before the superseded remote object is deleted.
type Repository interface {
	Create(ctx context.Context, tweet *models.Tweet) (*models.Tweet, error)

	// GetByID returns the tweet with its owner fields populated.
	GetByID(ctx context.Context, id string) (*models.Tweet, error)

	// ListByOwner returns the owner's tweets, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Tweet, error)

	UpdateContent(ctx context.Context, id string, content string) (*models.Tweet, error)

	UpdateImage(ctx context.Context, id string, key string, url string) (*models.Tweet, error)

	Delete(ctx context.Context, id string) error
}
