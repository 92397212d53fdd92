package tweets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dsmelov/chirp/internal/common"
	"github.com/dsmelov/chirp/internal/dbx"
	"github.com/dsmelov/chirp/internal/models"
)

const tweetColumns = `t.id, t.owner_id, t.content, t.image_key, t.image_url, t.created_at, t.updated_at,
	        u.id, u.username, u.full_name, u.avatar_url`

const tweetSelect = `SELECT ` + tweetColumns + `
	 FROM tweets t JOIN users u ON u.id = t.owner_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTweet(row rowScanner) (*models.Tweet, error) {
	tweet := &models.Tweet{Owner: &models.TweetUser{}}
	err := row.Scan(&tweet.ID, &tweet.OwnerID, &tweet.Content,
		&tweet.ImageKey, &tweet.ImageURL, &tweet.CreatedAt, &tweet.UpdatedAt,
		&tweet.Owner.ID, &tweet.Owner.UserName, &tweet.Owner.FullName, &tweet.Owner.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tweet, nil
}

func (r *PostgresRepository) Create(ctx context.Context, tweet *models.Tweet) (*models.Tweet, error) {

	query :=
		`INSERT INTO tweets (owner_id, content, image_key, image_url)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		tweet.OwnerID, tweet.Content, tweet.ImageKey, tweet.ImageURL).
		Scan(&tweet.ID, &tweet.CreatedAt, &tweet.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tweet, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Tweet, error) {
	query := tweetSelect + `
	 WHERE t.id = $1
	 `

	return scanTweet(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Tweet, error) {
	query := tweetSelect + `
	 WHERE t.owner_id = $1
	 ORDER BY t.created_at DESC
	 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Tweet
	for rows.Next() {
		tweet, err := scanTweet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tweet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) UpdateContent(ctx context.Context, id string, content string) (*models.Tweet, error) {
	query :=
		`WITH updated AS (
		    UPDATE tweets SET content = $2, updated_at = now()
		    WHERE id = $1
		    RETURNING *
		 )
		 SELECT ` + tweetColumns + `
		 FROM updated t JOIN users u ON u.id = t.owner_id
		 `

	return scanTweet(r.db.QueryRowContext(ctx, query, id, content))
}

func (r *PostgresRepository) UpdateImage(ctx context.Context, id string, key string, url string) (*models.Tweet, error) {
	query :=
		`WITH updated AS (
		    UPDATE tweets SET image_key = $2, image_url = $3, updated_at = now()
		    WHERE id = $1
		    RETURNING *
		 )
		 SELECT ` + tweetColumns + `
		 FROM updated t JOIN users u ON u.id = t.owner_id
		 `

	return scanTweet(r.db.QueryRowContext(ctx, query, id, key, url))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {

	res, err := r.db.ExecContext(ctx, `DELETE FROM tweets WHERE id = $1`, id)
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
