package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dsmelov/chirp/internal/common"
	"github.com/dsmelov/chirp/internal/dbx"
	"github.com/dsmelov/chirp/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, username, email, full_name, password_hash, COALESCE(refresh_token, ''), avatar_key, avatar_url, cover_key, cover_url, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.FullName,
		&user.PasswordHash, &user.RefreshToken,
		&user.AvatarKey, &user.AvatarURL, &user.CoverKey, &user.CoverURL,
		&user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, email, full_name, password_hash, avatar_key, avatar_url, cover_key, cover_url)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		strings.ToLower(user.UserName), strings.ToLower(user.Email), user.FullName,
		user.PasswordHash, user.AvatarKey, user.AvatarURL, user.CoverKey, user.CoverURL).
		Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE username = $1 OR email = $1
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(identifier)))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, fullName string, email string) (*models.User, error) {
	query :=
		`UPDATE users SET full_name = $2, email = $3
		 WHERE id = $1
		 RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, fullName, strings.ToLower(email)))
	if err != nil && isUniqueViolation(err) {
		return nil, common.ErrorAlreadyExists
	}
	return user, err
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id string, key string, url string) (*models.User, error) {
	query :=
		`UPDATE users SET avatar_key = $2, avatar_url = $3
		 WHERE id = $1
		 RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, id, key, url))
}

func (r *PostgresRepository) UpdateCover(ctx context.Context, id string, key string, url string) (*models.User, error) {
	query :=
		`UPDATE users SET cover_key = $2, cover_url = $3
		 WHERE id = $1
		 RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, id, key, url))
}

func (r *PostgresRepository) SetSessionToken(ctx context.Context, id string, token string) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token = $2 WHERE id = $1`, id, token)
}

func (r *PostgresRepository) RotateSessionToken(ctx context.Context, id string, current string, next string) error {

	query :=
		`UPDATE users SET refresh_token = $3
		 WHERE id = $1 AND refresh_token = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, current, next)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	// Zero rows means the stored reference no longer equals the incoming
	// token: a concurrent rotation won, or the session was cleared.
	if affected == 0 {
		return common.ErrSessionRevoked
	}

	return nil
}

func (r *PostgresRepository) ClearSessionToken(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token = NULL WHERE id = $1`, id)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
