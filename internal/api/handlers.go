package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/terra-clan/learning-engine/internal/presence"
	"github.com/terra-clan/learning-engine/internal/progress"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError maps domain errors onto status codes and error codes
func respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, progress.ErrCourseNotFound):
		respondError(w, http.StatusNotFound, "course_not_found", "course not found")
	case errors.Is(err, progress.ErrTopicNotFound):
		respondError(w, http.StatusNotFound, "topic_not_found", "topic not found")
	case errors.Is(err, progress.ErrNotEnrolled):
		respondError(w, http.StatusNotFound, "not_enrolled", "student is not enrolled in this course")
	case errors.Is(err, progress.ErrAlreadyCompleted):
		respondError(w, http.StatusConflict, "already_completed", "topic already completed")
	case errors.Is(err, progress.ErrNotEligible):
		respondError(w, http.StatusUnprocessableEntity, "not_eligible", err.Error())
	case errors.Is(err, progress.ErrInvalidSubmission):
		respondError(w, http.StatusBadRequest, "invalid_submission", err.Error())
	case errors.Is(err, presence.ErrMissingLevel), errors.Is(err, presence.ErrMissingCourse):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, presence.ErrNoPrincipal):
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	default:
		slog.Error("request failed",
			"op", op,
			"path", r.URL.Path,
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+op)
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether to continue.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return false
	}
	return true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks, ok := s.health.CheckAll(r.Context())
	if !ok {
		var failing []string
		for _, name := range s.health.List() {
			if status, found := checks[name]; found && status != "ok" {
				failing = append(failing, name)
			}
		}
		slog.Warn("readiness check failed", "checks", checks)
		respondError(w, http.StatusServiceUnavailable, "not_ready",
			"service not ready: "+strings.Join(failing, ", "))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}
