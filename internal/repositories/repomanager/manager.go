// Package repomanager wires repository implementations to database handles.
// Services hold a RepositoryManager and construct repositories per call,
// passing either the root *sql.DB or a transactional handle.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dsmelov/chirp/internal/dbx"
	"github.com/dsmelov/chirp/internal/repositories/tweets"
	"github.com/dsmelov/chirp/internal/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Tweets(db dbx.DBTX) tweets.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
