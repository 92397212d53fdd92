package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dsmelov/chirp/internal/auth"
	"github.com/dsmelov/chirp/internal/common"
	"github.com/dsmelov/chirp/internal/config"
	"github.com/dsmelov/chirp/internal/dbx"
	"github.com/dsmelov/chirp/internal/logging"
	"github.com/dsmelov/chirp/internal/media"
	"github.com/dsmelov/chirp/internal/models"
	tweetsrepo "github.com/dsmelov/chirp/internal/repositories/tweets"
	usersrepo "github.com/dsmelov/chirp/internal/repositories/users"
	"github.com/dsmelov/chirp/internal/services"
	"go.uber.org/zap"
)

// --- fakes ---

type nopStore struct{}

func (nopStore) Upload(ctx context.Context, content io.Reader, size int64, contentType string) (*media.Object, error) {
	return &media.Object{Key: "k", URL: "https://cdn/k"}, nil
}
func (nopStore) Delete(ctx context.Context, key string) error { return nil }

// stubUsersRepo holds one user and the session-token CAS semantics needed by
// the auth flows.
type stubUsersRepo struct {
	user *models.User
}

func (f *stubUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	u.ID = "u1"
	f.user = u
	return u, nil
}

func (f *stubUsersRepo) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if f.user != nil && (f.user.UserName == identifier || f.user.Email == identifier) {
		clone := *f.user
		return &clone, nil
	}
	return nil, common.ErrorNotFound
}

func (f *stubUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.user != nil && f.user.ID == id {
		clone := *f.user
		return &clone, nil
	}
	return nil, common.ErrorNotFound
}

func (f *stubUsersRepo) UpdateProfile(ctx context.Context, id, fullName, email string) (*models.User, error) {
	f.user.FullName = fullName
	f.user.Email = email
	clone := *f.user
	return &clone, nil
}

func (f *stubUsersRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	f.user.PasswordHash = hash
	return nil
}

func (f *stubUsersRepo) UpdateAvatar(ctx context.Context, id, key, url string) (*models.User, error) {
	clone := *f.user
	return &clone, nil
}

func (f *stubUsersRepo) UpdateCover(ctx context.Context, id, key, url string) (*models.User, error) {
	clone := *f.user
	return &clone, nil
}

func (f *stubUsersRepo) SetSessionToken(ctx context.Context, id, token string) error {
	f.user.RefreshToken = token
	return nil
}

func (f *stubUsersRepo) RotateSessionToken(ctx context.Context, id, current, next string) error {
	if f.user == nil || f.user.RefreshToken != current {
		return common.ErrSessionRevoked
	}
	f.user.RefreshToken = next
	return nil
}

func (f *stubUsersRepo) ClearSessionToken(ctx context.Context, id string) error {
	f.user.RefreshToken = ""
	return nil
}

type stubRepoManager struct {
	u *stubUsersRepo
}

func (m *stubRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *stubRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return m.u }

func (m *stubRepoManager) Tweets(db dbx.DBTX) tweetsrepo.Repository { return nil }

func newTestServer(t *testing.T) (*Server, *stubUsersRepo, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		UploadDir:                    t.TempDir(),
	}

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &stubUsersRepo{}
	logger := logging.NewZapLogger(zap.NewNop())
	mm := media.NewManager(nopStore{}, logger)
	us := services.NewUserService(db, &stubRepoManager{u: repo}, mm, logger, cfg)
	ts := services.NewTweetService(db, &stubRepoManager{u: repo}, mm, logger)

	return NewServer(cfg, logger, us, ts), repo, cfg
}

func seedUser(t *testing.T, repo *stubUsersRepo) {
	t.Helper()
	hash, err := auth.HashPassword("pass123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo.user = &models.User{
		ID: "u1", UserName: "bob", Email: "bob@example.com",
		FullName: "Bob", PasswordHash: hash,
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// --- token extraction ---

func TestExtractAccessToken_CookieTakesPrecedence(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")

	if got := extractAccessToken(req); got != "from-cookie" {
		t.Fatalf("want cookie token, got %q", got)
	}
}

func TestExtractAccessToken_BearerFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer from-header")

	if got := extractAccessToken(req); got != "from-header" {
		t.Fatalf("want header token, got %q", got)
	}

	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := extractAccessToken(plain); got != "" {
		t.Fatalf("want empty token, got %q", got)
	}
}

// --- auth gate ---

func TestRequireAuth_UniformUnauthorized(t *testing.T) {
	server, repo, _ := newTestServer(t)
	seedUser(t, repo)
	router := server.Router()

	expired, _ := auth.GenerateToken("u1", []byte("access-secret"), -time.Minute)
	unknownUser, _ := auth.GenerateToken("ghost", []byte("access-secret"), time.Hour)

	cases := []struct {
		name   string
		mutate func(*http.Request)
	}{
		{"missing", nil},
		{"malformed", func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") }},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }},
		{"not a jwt", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not.a.jwt") }},
		{"unknown principal", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+unknownUser) }},
	}

	var bodies []string
	for _, tc := range cases {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/users/current-user", "", tc.mutate)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: want 401, got %d", tc.name, rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}
	for _, body := range bodies[1:] {
		if body != bodies[0] {
			t.Fatalf("auth failure responses differ: %q vs %q", bodies[0], body)
		}
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	server, repo, _ := newTestServer(t)
	seedUser(t, repo)
	router := server.Router()

	token, err := auth.GenerateToken("u1", []byte("access-secret"), time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/users/current-user", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "pass") || strings.Contains(rec.Body.String(), "refresh_token") {
		t.Fatal("response must not leak credential fields")
	}
}

// --- login / refresh / logout ---

func TestLogin_SetsCookiesAndReturnsPair(t *testing.T) {
	server, repo, _ := newTestServer(t)
	seedUser(t, repo)
	router := server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users/login",
		`{"username":"bob","password":"pass123"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	cookies := rec.Result().Cookies()
	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = c.HttpOnly
	}
	if !names[accessTokenCookie] || !names[refreshTokenCookie] {
		t.Fatalf("both session cookies must be set HttpOnly, got %v", names)
	}

	var envelope struct {
		Data sessionResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Data.AccessToken == "" || envelope.Data.RefreshToken == "" {
		t.Fatal("both tokens must be returned in the body")
	}
}

func TestLogin_FailureBodiesIdentical(t *testing.T) {
	server, repo, _ := newTestServer(t)
	seedUser(t, repo)
	router := server.Router()

	wrongPassword := doJSON(t, router, http.MethodPost, "/api/v1/users/login",
		`{"username":"bob","password":"wrong"}`, nil)
	unknownUser := doJSON(t, router, http.MethodPost, "/api/v1/users/login",
		`{"username":"nobody","password":"pass123"}`, nil)

	if wrongPassword.Code != http.StatusUnauthorized || unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("want 401/401, got %d/%d", wrongPassword.Code, unknownUser.Code)
	}
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("login failures must be indistinguishable: %q vs %q",
			wrongPassword.Body.String(), unknownUser.Body.String())
	}
}

func TestRefresh_PrefersCookieAndRotates(t *testing.T) {
	server, repo, cfg := newTestServer(t)
	seedUser(t, repo)
	router := server.Router()

	refresh, err := auth.GenerateToken("u1", []byte(cfg.RefreshTokenSecret), time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	repo.user.RefreshToken = refresh

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users/refresh-token", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: refresh})
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.user.RefreshToken == refresh {
		t.Fatal("stored refresh token must be rotated")
	}

	// replaying the superseded token is revoked, not re-issued
	replay := doJSON(t, router, http.MethodPost, "/api/v1/users/refresh-token", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: refresh})
	})
	if replay.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 on replay, got %d", replay.Code)
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	server, repo, cfg := newTestServer(t)
	seedUser(t, repo)
	router := server.Router()

	access, _ := auth.GenerateToken("u1", []byte(cfg.AccessTokenSecret), time.Hour)
	repo.user.RefreshToken = "some-refresh"

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users/logout", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.user.RefreshToken != "" {
		t.Fatal("logout must clear the stored refresh token")
	}
}
