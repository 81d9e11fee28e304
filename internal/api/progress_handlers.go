package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/learning-engine/internal/models"
)

// Progress handlers. Every write returns the full updated enrollment so
// clients can re-derive completion without a second fetch.

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	course := courseFromContext(r.Context())
	principal := PrincipalFromContext(r.Context())

	e, err := s.tracker.Enroll(r.Context(), course.ID, principal.ID)
	if err != nil {
		respondServiceError(w, r, "enroll", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	course := courseFromContext(r.Context())
	principal := PrincipalFromContext(r.Context())

	e, err := s.tracker.GetProgress(r.Context(), course.ID, principal.ID)
	if err != nil {
		respondServiceError(w, r, "get progress", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleSubmitVideo(w http.ResponseWriter, r *http.Request) {
	var req models.VideoProgressRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	course := courseFromContext(r.Context())
	principal := PrincipalFromContext(r.Context())

	e, err := s.tracker.SubmitVideoProgress(r.Context(), course.ID, principal.ID, req)
	if err != nil {
		respondServiceError(w, r, "submit video progress", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.QuizSubmissionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	course := courseFromContext(r.Context())
	principal := PrincipalFromContext(r.Context())

	e, err := s.tracker.SubmitQuizResult(r.Context(), course.ID, principal.ID, req)
	if err != nil {
		respondServiceError(w, r, "submit quiz result", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req models.TaskSubmissionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	course := courseFromContext(r.Context())
	principal := PrincipalFromContext(r.Context())

	e, err := s.tracker.SubmitTask(r.Context(), course.ID, principal.ID, req)
	if err != nil {
		respondServiceError(w, r, "submit task", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleMarkReading(w http.ResponseWriter, r *http.Request) {
	var req models.ReadingCompleteRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	course := courseFromContext(r.Context())
	principal := PrincipalFromContext(r.Context())

	e, err := s.tracker.MarkReadingComplete(r.Context(), course.ID, principal.ID, req.TopicID)
	if err != nil {
		respondServiceError(w, r, "mark reading complete", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleCompleteTopic(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicId")
	course := courseFromContext(r.Context())
	principal := PrincipalFromContext(r.Context())

	e, err := s.tracker.CompleteTopic(r.Context(), course.ID, principal.ID, topicID)
	if err != nil {
		respondServiceError(w, r, "complete topic", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	course := courseFromContext(r.Context())

	enrollments, err := s.tracker.ListEnrollments(r.Context(), course.ID)
	if err != nil {
		respondServiceError(w, r, "list enrollments", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enrollments": enrollments,
		"total":       len(enrollments),
	})
}
