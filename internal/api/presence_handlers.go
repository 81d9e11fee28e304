package api

import (
	"net/http"
	"time"

	"github.com/terra-clan/learning-engine/internal/models"
	"github.com/terra-clan/learning-engine/internal/presence"
)

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req models.HeartbeatRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	course := courseFromContext(r.Context())
	level := course.Level(req.LevelID)
	if level == nil {
		respondError(w, http.StatusNotFound, "level_not_found", "level not found")
		return
	}

	// the course tree owns the index; the client's copy is advisory
	counts, err := s.presence.Heartbeat(r.Context(), PrincipalFromContext(r.Context()), course.ID, level.ID, level.Index)
	if err != nil {
		respondServiceError(w, r, "record heartbeat", err)
		return
	}
	respondJSON(w, http.StatusOK, models.HeartbeatResponse{Counts: counts})
}

func (s *Server) handleGoOffline(w http.ResponseWriter, r *http.Request) {
	course := courseFromContext(r.Context())

	if err := s.presence.GoOffline(r.Context(), PrincipalFromContext(r.Context()), course.ID); err != nil {
		respondServiceError(w, r, "go offline", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "offline"})
}

func (s *Server) handleLiveCounts(w http.ResponseWriter, r *http.Request) {
	course := courseFromContext(r.Context())

	counts, err := s.presence.GetLiveCounts(r.Context(), course.ID)
	if err != nil {
		respondServiceError(w, r, "get live counts", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}

func (s *Server) handleActiveStudents(w http.ResponseWriter, r *http.Request) {
	course := courseFromContext(r.Context())

	students, err := s.presence.GetActiveStudents(r.Context(), course.ID)
	if err != nil {
		respondServiceError(w, r, "get active students", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"students": students,
		"levels":   presence.GroupByLevel(students),
		"total":    len(students),
	})
}

func (s *Server) handlePresenceSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.PresenceSettings{
		StalenessWindowSeconds:   int(s.presence.Window() / time.Second),
		HeartbeatIntervalSeconds: int(s.streamInterval / time.Second),
		MonitorIntervalSeconds:   int(s.monitorInterval / time.Second),
	})
}
