// Package services contains server-side business logic. This file implements
// UserService: account registration, login, refresh-token rotation, logout,
// and profile/media updates.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dsmelov/chirp/internal/auth"
	"github.com/dsmelov/chirp/internal/common"
	"github.com/dsmelov/chirp/internal/config"
	"github.com/dsmelov/chirp/internal/logging"
	"github.com/dsmelov/chirp/internal/media"
	"github.com/dsmelov/chirp/internal/models"
	"github.com/dsmelov/chirp/internal/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides account and session operations:
//   - Register: create users, promoting avatar/cover media
//   - Login: verify credentials and mint tokens
//   - Refresh: rotate the stored refresh token and mint a new pair
//   - Logout: clear the stored refresh token
//   - profile updates (account fields, password, avatar, cover)
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	media                        *media.Manager
	logger                       logging.Logger
	accessTokenSecret            []byte
	refreshTokenSecret           []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories, the media
// manager, and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, mm *media.Manager, l logging.Logger, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		media:                        mm,
		logger:                       l.With("module", "user_service"),
		accessTokenSecret:            []byte(cfg.AccessTokenSecret),
		refreshTokenSecret:           []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a new account. The avatar is required, the cover image
// optional; both are promoted to remote storage before the user row is
// written, and the row write is the commit step for the avatar so a failed
// insert leaves no dangling remote reference.
func (s *UserService) Register(ctx context.Context, username, email, fullName, password string, avatar, cover *media.StagedFile) (*models.PublicUser, error) {

	for _, field := range []string{username, email, fullName, password} {
		if strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("%w: all fields are required", common.ErrorValidation)
		}
	}
	if avatar == nil {
		return nil, fmt.Errorf("%w: avatar image is required", common.ErrorValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		UserName:     strings.ToLower(strings.TrimSpace(username)),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
	}

	var coverHandle media.Handle
	if cover != nil {
		coverHandle, err = s.media.Promote(ctx, cover, "", nil)
		if err != nil {
			return nil, err
		}
		user.CoverKey = coverHandle.Key
		user.CoverURL = coverHandle.URL
	}

	var created *models.User
	_, err = s.media.Promote(ctx, avatar, "", func(ctx context.Context, h media.Handle) error {
		user.AvatarKey = h.Key
		user.AvatarURL = h.URL
		repo := s.repomanager.Users(s.db)
		created, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		// the avatar commit failed, so the cover object has no owner either
		if coverHandle.Key != "" {
			if retireErr := s.media.Retire(ctx, coverHandle); retireErr != nil {
				s.logger.Warn(ctx, "orphaned cover object", "key", coverHandle.Key, "error", retireErr)
			}
		}
		return nil, err
	}

	return created.Public(), nil
}

// Login resolves the principal by username or email and verifies the
// password. An unknown identifier and a failed verification both return
// common.ErrInvalidCredentials so the two cases cannot be told apart. On
// success a fresh token pair is minted and the stored refresh token is
// overwritten, revoking any previous session.
func (s *UserService) Login(ctx context.Context, identifier string, password string) (*models.PublicUser, *TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrInvalidCredentials
		}
		return nil, nil, common.ErrorInternal
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, nil, common.ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	if err := repo.SetSessionToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, nil, common.ErrorInternal
	}

	return user.Public(), pair, nil
}

// Refresh validates a refresh token and rotates it. The incoming token must
// equal the principal's stored reference; a mismatch means reuse after a
// prior rotation or after logout and fails with common.ErrSessionRevoked.
// Rotation is a compare-and-swap, so concurrent refreshes on the same stale
// token produce exactly one winner.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrorUnauthorized
	}

	userID, err := auth.ParseToken(refreshToken, s.refreshTokenSecret)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return nil, common.ErrSessionRevoked
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	// the CAS decides the winner under concurrent refreshes
	if err := repo.RotateSessionToken(ctx, user.ID, refreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, common.ErrSessionRevoked) {
			return nil, common.ErrSessionRevoked
		}
		return nil, common.ErrorInternal
	}

	return pair, nil
}

// Logout clears the stored refresh-token reference, invalidating any
// outstanding refresh token immediately. No other principal fields change.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)
	if err := repo.ClearSessionToken(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	return nil
}

// CurrentUser returns the public projection of the principal.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *UserService) ChangePassword(ctx context.Context, userID string, current string, next string) error {
	if strings.TrimSpace(next) == "" {
		return fmt.Errorf("%w: new password is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !auth.VerifyPassword(current, user.PasswordHash) {
		return common.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return common.ErrorInternal
	}

	return repo.UpdatePasswordHash(ctx, userID, hash)
}

// UpdateAccount updates the principal's profile fields.
func (s *UserService) UpdateAccount(ctx context.Context, userID string, fullName string, email string) (*models.PublicUser, error) {
	if strings.TrimSpace(fullName) == "" || strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: full name and email are required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.UpdateProfile(ctx, userID, strings.TrimSpace(fullName), strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// UpdateAvatar promotes the staged file and records it as the principal's
// avatar. The previous avatar object is deleted only after the row update
// commits.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, staged *media.StagedFile) (*models.PublicUser, error) {
	return s.updateUserMedia(ctx, userID, staged,
		func(u *models.User) string { return u.AvatarKey },
		func(ctx context.Context, h media.Handle) (*models.User, error) {
			return s.repomanager.Users(s.db).UpdateAvatar(ctx, userID, h.Key, h.URL)
		})
}

// UpdateCover promotes the staged file and records it as the principal's
// cover image, deleting the previous object after the commit.
func (s *UserService) UpdateCover(ctx context.Context, userID string, staged *media.StagedFile) (*models.PublicUser, error) {
	return s.updateUserMedia(ctx, userID, staged,
		func(u *models.User) string { return u.CoverKey },
		func(ctx context.Context, h media.Handle) (*models.User, error) {
			return s.repomanager.Users(s.db).UpdateCover(ctx, userID, h.Key, h.URL)
		})
}

func (s *UserService) updateUserMedia(ctx context.Context, userID string, staged *media.StagedFile,
	previousKey func(*models.User) string,
	update func(context.Context, media.Handle) (*models.User, error)) (*models.PublicUser, error) {

	if staged == nil {
		return nil, fmt.Errorf("%w: image file is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var updated *models.User
	_, err = s.media.Promote(ctx, staged, previousKey(user), func(ctx context.Context, h media.Handle) error {
		updated, err = update(ctx, h)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated.Public(), nil
}

// --- helpers below ---

func (s *UserService) generateTokenPair(userID string) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.accessTokenSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateToken(userID, s.refreshTokenSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
