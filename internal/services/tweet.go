package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dsmelov/chirp/internal/common"
	"github.com/dsmelov/chirp/internal/logging"
	"github.com/dsmelov/chirp/internal/media"
	"github.com/dsmelov/chirp/internal/models"
	"github.com/dsmelov/chirp/internal/repositories/repomanager"
)

// TweetService implements tweet CRUD with ownership checks and media
// lifecycle handling for the optional attached image.
type TweetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	media       *media.Manager
	logger      logging.Logger
}

func NewTweetService(db *sql.DB, m repomanager.RepositoryManager, mm *media.Manager, l logging.Logger) *TweetService {
	return &TweetService{
		db:          db,
		repomanager: m,
		media:       mm,
		logger:      l.With("module", "tweet_service"),
	}
}

// Create stores a new tweet for ownerID. When an image is staged, it is
// promoted to remote storage and the tweet insert is the commit step, so a
// failed insert leaves no remote object behind.
func (s *TweetService) Create(ctx context.Context, ownerID string, content string, image *media.StagedFile) (*models.Tweet, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: tweet content is required", common.ErrorValidation)
	}

	repo := s.repomanager.Tweets(s.db)
	tweet := &models.Tweet{OwnerID: ownerID, Content: content}

	if image == nil {
		created, err := repo.Create(ctx, tweet)
		if err != nil {
			return nil, err
		}
		return repo.GetByID(ctx, created.ID)
	}

	var created *models.Tweet
	_, err := s.media.Promote(ctx, image, "", func(ctx context.Context, h media.Handle) error {
		tweet.ImageKey = h.Key
		tweet.ImageURL = h.URL
		var createErr error
		created, createErr = repo.Create(ctx, tweet)
		return createErr
	})
	if err != nil {
		return nil, err
	}

	return repo.GetByID(ctx, created.ID)
}

// ListByOwner returns the owner's tweets, newest first.
func (s *TweetService) ListByOwner(ctx context.Context, ownerID string) ([]*models.Tweet, error) {
	repo := s.repomanager.Tweets(s.db)
	return repo.ListByOwner(ctx, ownerID)
}

// UpdateContent replaces the tweet text after an ownership check.
func (s *TweetService) UpdateContent(ctx context.Context, callerID string, tweetID string, content string) (*models.Tweet, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: tweet content is required", common.ErrorValidation)
	}

	repo := s.repomanager.Tweets(s.db)

	if _, err := s.ownedTweet(ctx, callerID, tweetID); err != nil {
		return nil, err
	}

	return repo.UpdateContent(ctx, tweetID, content)
}

// UpdateImage replaces the tweet's attached image. The previous remote
// object is deleted only after the row update commits.
func (s *TweetService) UpdateImage(ctx context.Context, callerID string, tweetID string, image *media.StagedFile) (*models.Tweet, error) {
	if image == nil {
		return nil, fmt.Errorf("%w: tweet image is required", common.ErrorValidation)
	}

	repo := s.repomanager.Tweets(s.db)

	tweet, err := s.ownedTweet(ctx, callerID, tweetID)
	if err != nil {
		return nil, err
	}

	var updated *models.Tweet
	_, err = s.media.Promote(ctx, image, tweet.ImageKey, func(ctx context.Context, h media.Handle) error {
		var updateErr error
		updated, updateErr = repo.UpdateImage(ctx, tweetID, h.Key, h.URL)
		return updateErr
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes the tweet after an ownership check. The row delete commits
// first (the record is the authority); retiring the remote image afterwards
// is best-effort and a failure only produces a warning.
func (s *TweetService) Delete(ctx context.Context, callerID string, tweetID string) error {
	repo := s.repomanager.Tweets(s.db)

	tweet, err := s.ownedTweet(ctx, callerID, tweetID)
	if err != nil {
		return err
	}

	if err := repo.Delete(ctx, tweetID); err != nil {
		return err
	}

	if tweet.ImageKey != "" {
		if err := s.media.Retire(ctx, media.Handle{Key: tweet.ImageKey, URL: tweet.ImageURL}); err != nil {
			s.logger.Warn(ctx, "orphaned tweet image left in remote storage", "tweet_id", tweetID, "error", err)
		}
	}

	return nil
}

func (s *TweetService) ownedTweet(ctx context.Context, callerID string, tweetID string) (*models.Tweet, error) {
	repo := s.repomanager.Tweets(s.db)

	tweet, err := repo.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if tweet.OwnerID != callerID {
		return nil, common.ErrorForbidden
	}
	return tweet, nil
}
