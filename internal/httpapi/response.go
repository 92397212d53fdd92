package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dsmelov/chirp/internal/common"
)

// apiResponse is the uniform JSON envelope for all endpoints.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < 400,
	})
}

// writeError maps sentinel errors onto HTTP statuses with information-minimal
// messages. Unknown errors are logged and reported as a generic 500 so no
// internals leak to the client.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var status int
	var message string

	switch {
	case errors.Is(err, common.ErrorValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrInvalidCredentials):
		// one fixed message for unknown identifier and wrong password alike
		status, message = http.StatusUnauthorized, "invalid user credentials"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		status, message = http.StatusUnauthorized, "unauthorized request"
	case errors.Is(err, common.ErrSessionRevoked):
		status, message = http.StatusUnauthorized, "session revoked"
	case errors.Is(err, common.ErrorForbidden):
		status, message = http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrorNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		status, message = http.StatusConflict, "already exists"
	case errors.Is(err, common.ErrUploadFailed):
		status, message = http.StatusInternalServerError, "failed to upload media"
	default:
		s.logger.Error(ctx, "request failed", "error", err.Error())
		status, message = http.StatusInternalServerError, "internal error"
	}

	s.writeJSON(w, status, nil, message)
}

func decodeJSONBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.ErrorValidation
	}
	return nil
}
