package repomanager

import (
	"context"
	"database/sql"

	"github.com/dsmelov/chirp/internal/dbx"
	"github.com/dsmelov/chirp/internal/migrations"
	"github.com/dsmelov/chirp/internal/repositories/tweets"
	"github.com/dsmelov/chirp/internal/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Tweets(db dbx.DBTX) tweets.Repository {
	return tweets.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
