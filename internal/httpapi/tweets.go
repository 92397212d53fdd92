package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

type tweetContentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleCreateTweet(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, nil, "invalid multipart form")
		return
	}

	image, err := s.stageFormFile(r, "tweetImage")
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	tweet, err := s.tweets.Create(r.Context(), principal.ID, r.FormValue("content"), image)
	if err != nil {
		s.discardStaged(r, image)
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tweet, "Tweet created successfully")
}

func (s *Server) handleListTweets(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}

	tweets, err := s.tweets.ListByOwner(r.Context(), principal.ID)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tweets, "User's tweets fetched successfully")
}

func (s *Server) handleUpdateTweetContent(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}

	var req tweetContentRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	tweet, err := s.tweets.UpdateContent(r.Context(), principal.ID, mux.Vars(r)["tweetId"], req.Content)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tweet, "Tweet content updated successfully")
}

func (s *Server) handleUpdateTweetImage(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, nil, "invalid multipart form")
		return
	}

	image, err := s.stageFormFile(r, "tweetImage")
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	tweet, err := s.tweets.UpdateImage(r.Context(), principal.ID, mux.Vars(r)["tweetId"], image)
	if err != nil {
		s.discardStaged(r, image)
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tweet, "Tweet image updated successfully")
}

func (s *Server) handleDeleteTweet(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}

	if err := s.tweets.Delete(r.Context(), principal.ID, mux.Vars(r)["tweetId"]); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, nil, "Tweet deleted successfully")
}
