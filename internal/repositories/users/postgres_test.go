package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dsmelov/chirp/internal/common"
	"github.com/dsmelov/chirp/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows(u *models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "full_name", "password_hash", "refresh_token",
		"avatar_key", "avatar_url", "cover_key", "cover_url", "created_at",
	}).AddRow(u.ID, u.UserName, u.Email, u.FullName, u.PasswordHash, u.RefreshToken,
		u.AvatarKey, u.AvatarURL, u.CoverKey, u.CoverURL, u.CreatedAt)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\b.*RETURNING\s+id,\s*created_at\s*$`

	mock.ExpectQuery(q).
		WithArgs("bob", "bob@example.com", "Bob", "hash", "ak", "au", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u1", time.Now()))

	u, err := repo.Create(context.Background(), &models.User{
		UserName: "Bob", Email: "Bob@Example.com", FullName: "Bob",
		PasswordHash: "hash", AvatarKey: "ak", AvatarURL: "au",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("unexpected id: %v", u.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByIdentifier_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s+OR\s+email\s*=\s*\$1\s*$`

	u := &models.User{ID: "u1", UserName: "bob", Email: "bob@example.com",
		FullName: "Bob", PasswordHash: "h", CreatedAt: time.Now()}

	mock.ExpectQuery(q).
		WithArgs("bob@example.com").
		WillReturnRows(userRows(u))

	// identifier is lowercased before the query
	got, err := repo.GetByIdentifier(context.Background(), "Bob@Example.COM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "u1" || got.PasswordHash != "h" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestGetByIdentifier_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+.*FROM\s+users\s+WHERE\s+username`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIdentifier(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestRotateSessionToken_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1\s+AND\s+refresh_token\s*=\s*\$2\s*$`

	mock.ExpectExec(q).
		WithArgs("u1", "old", "new").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RotateSessionToken(context.Background(), "u1", "old", "new")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotateSessionToken_Conflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// Another request already rotated: the compare-and-swap matches no row.
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+refresh_token`).
		WithArgs("u1", "stale", "new").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RotateSessionToken(context.Background(), "u1", "stale", "new")
	if !errors.Is(err, common.ErrSessionRevoked) {
		t.Fatalf("want common.ErrSessionRevoked, got %v", err)
	}
}

func TestClearSessionToken_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+refresh_token\s*=\s*NULL\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ClearSessionToken(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateAvatar_ReturnsUpdatedRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := &models.User{ID: "u1", UserName: "bob", Email: "b@e.com", FullName: "Bob",
		PasswordHash: "h", AvatarKey: "k2", AvatarURL: "https://cdn/k2", CreatedAt: time.Now()}

	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+avatar_key\s*=\s*\$2,\s*avatar_url\s*=\s*\$3`).
		WithArgs("u1", "k2", "https://cdn/k2").
		WillReturnRows(userRows(u))

	got, err := repo.UpdateAvatar(context.Background(), "u1", "k2", "https://cdn/k2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AvatarKey != "k2" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestUpdatePasswordHash_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+password_hash`).
		WithArgs("missing", "h2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePasswordHash(context.Background(), "missing", "h2")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
