package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trivia-service/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps an error to its HTTP status and stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound, "question_not_found"
	case errors.Is(err, domain.ErrDuplicateIdentity):
		return http.StatusConflict, "duplicate_identity"
	case errors.Is(err, domain.ErrMalformedSubmission):
		return http.StatusBadRequest, "malformed_submission"
	case errors.Is(err, domain.ErrInvalidUser):
		return http.StatusBadRequest, "invalid_user"
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway, "provider_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// describe returns the client-facing message; internal failures stay opaque.
func (h *Handler) describe(r *http.Request, err error) (int, string, string) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		return status, code, "internal error"
	}
	return status, code, err.Error()
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := h.describe(r, err)
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
