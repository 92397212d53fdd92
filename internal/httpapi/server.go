// Package httpapi exposes the HTTP surface of the chirp server: routing,
// the authentication gate, multipart upload staging, and JSON envelopes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dsmelov/chirp/internal/config"
	"github.com/dsmelov/chirp/internal/logging"
	"github.com/dsmelov/chirp/internal/services"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	address           string
	logger            logging.Logger
	users             *services.UserService
	tweets            *services.TweetService
	accessTokenSecret []byte
	accessTokenTTL    time.Duration
	refreshTokenTTL   time.Duration
	uploadDir         string
}

func NewServer(cfg *config.Config, l logging.Logger, us *services.UserService, ts *services.TweetService) *Server {
	return &Server{
		address:           cfg.EndpointAddrHTTP,
		logger:            l.With("module", "http_server"),
		users:             us,
		tweets:            ts,
		accessTokenSecret: []byte(cfg.AccessTokenSecret),
		accessTokenTTL:    cfg.AccessTokenValidityDuration,
		refreshTokenTTL:   cfg.RefreshTokenValidityDuration,
		uploadDir:         cfg.UploadDir,
	}
}

// Router builds the route table. All tweet routes and the session-bound user
// routes sit behind the auth gate.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	users.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	users.HandleFunc("/refresh-token", s.handleRefresh).Methods(http.MethodPost)
	users.HandleFunc("/logout", s.requireAuth(s.handleLogout)).Methods(http.MethodPost)
	users.HandleFunc("/password-change", s.requireAuth(s.handlePasswordChange)).Methods(http.MethodPost)
	users.HandleFunc("/update-account", s.requireAuth(s.handleUpdateAccount)).Methods(http.MethodPatch)
	users.HandleFunc("/avatar", s.requireAuth(s.handleUpdateAvatar)).Methods(http.MethodPatch)
	users.HandleFunc("/cover-image", s.requireAuth(s.handleUpdateCover)).Methods(http.MethodPatch)
	users.HandleFunc("/current-user", s.requireAuth(s.handleCurrentUser)).Methods(http.MethodGet)

	tweets := api.PathPrefix("/tweets").Subrouter()
	tweets.HandleFunc("", s.requireAuth(s.handleCreateTweet)).Methods(http.MethodPost)
	tweets.HandleFunc("", s.requireAuth(s.handleListTweets)).Methods(http.MethodGet)
	tweets.HandleFunc("/{tweetId}/content", s.requireAuth(s.handleUpdateTweetContent)).Methods(http.MethodPatch)
	tweets.HandleFunc("/{tweetId}/image", s.requireAuth(s.handleUpdateTweetImage)).Methods(http.MethodPatch)
	tweets.HandleFunc("/{tweetId}", s.requireAuth(s.handleDeleteTweet)).Methods(http.MethodDelete)

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:         s.address,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) setSessionCookies(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(s.accessTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(s.refreshTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
