package httpapi

import (
	"context"
	"net/http"

	"github.com/dsmelov/chirp/internal/media"
	"github.com/dsmelov/chirp/internal/models"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	// Username/Email are accepted as aliases for Identifier so either
	// field name logs a user in.
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) identifier() string {
	if req.Identifier != "" {
		return req.Identifier
	}
	if req.Username != "" {
		return req.Username
	}
	return req.Email
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	User         any    `json:"user,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, nil, "invalid multipart form")
		return
	}

	avatar, err := s.stageFormFile(r, "avatar")
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	cover, err := s.stageFormFile(r, "coverImage")
	if err != nil {
		s.discardStaged(r, avatar)
		s.writeError(r.Context(), w, err)
		return
	}

	user, err := s.users.Register(r.Context(),
		r.FormValue("username"), r.FormValue("email"),
		r.FormValue("fullName"), r.FormValue("password"),
		avatar, cover)
	if err != nil {
		// the service owns staged files once Register is entered, except
		// when validation rejects the request before any promotion
		s.discardStaged(r, avatar, cover)
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, user, "User registered successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	user, pair, err := s.users.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.setSessionCookies(w, pair)
	s.writeJSON(w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "User logged in successfully")
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// the cookie takes precedence over the JSON body
	var token string
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSONBody(r, &req); err == nil {
			token = req.RefreshToken
		}
	}

	pair, err := s.users.Refresh(r.Context(), token)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.setSessionCookies(w, pair)
	s.writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Access token refreshed")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}

	if err := s.users.Logout(r.Context(), principal.ID); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.clearSessionCookies(w)
	s.writeJSON(w, http.StatusOK, nil, "User logged out")
}

func (s *Server) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}

	var req passwordChangeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	if err := s.users.ChangePassword(r.Context(), principal.ID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, nil, "Password changed successfully")
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}

	var req updateAccountRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	user, err := s.users.UpdateAccount(r.Context(), principal.ID, req.FullName, req.Email)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, user, "Account details updated")
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	s.handleUserMediaUpdate(w, r, "avatar", s.users.UpdateAvatar, "Avatar updated")
}

func (s *Server) handleUpdateCover(w http.ResponseWriter, r *http.Request) {
	s.handleUserMediaUpdate(w, r, "coverImage", s.users.UpdateCover, "Cover image updated")
}

func (s *Server) handleUserMediaUpdate(w http.ResponseWriter, r *http.Request, field string,
	update func(context.Context, string, *media.StagedFile) (*models.PublicUser, error), message string) {

	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, nil, "invalid multipart form")
		return
	}

	staged, err := s.stageFormFile(r, field)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	user, err := update(r.Context(), principal.ID, staged)
	if err != nil {
		s.discardStaged(r, staged)
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, user, message)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}

	s.writeJSON(w, http.StatusOK, principal, "Current user fetched")
}
