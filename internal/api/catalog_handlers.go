package api

import (
	"errors"
	"net/http"

	"github.com/terra-clan/learning-engine/internal/models"
	"github.com/terra-clan/learning-engine/internal/progress"
	"github.com/terra-clan/learning-engine/internal/rules"
)

// Catalog handlers: course listing and per-caller level navigation

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses := s.catalog.List()

	summaries := make([]*models.CourseSummary, 0, len(courses))
	for _, c := range courses {
		summaries = append(summaries, c.Summary())
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"courses": summaries,
		"total":   len(summaries),
	})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, courseFromContext(r.Context()))
}

// handleListLevels annotates levels with the caller's unlocked/completed
// state. Callers without an enrollment see only the first level unlocked.
func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	course := courseFromContext(r.Context())
	principal := PrincipalFromContext(r.Context())

	e, err := s.tracker.GetProgress(r.Context(), course.ID, principal.ID)
	if err != nil && !errors.Is(err, progress.ErrNotEnrolled) {
		respondServiceError(w, r, "list levels", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"levels": rules.LevelStatuses(course, e),
	})
}
