package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/learning-engine/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const streamWriteWait = 10 * time.Second

// StreamMessage is one frame of the live-count stream
type StreamMessage struct {
	Type     string            `json:"type"`
	CourseID string            `json:"courseId,omitempty"`
	Counts   models.LiveCounts `json:"counts,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// handlePresenceStream pushes the course's live counts once on connect and
// then every stream interval until the client disconnects
func (s *Server) handlePresenceStream(w http.ResponseWriter, r *http.Request) {
	course := courseFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("presence stream connected", "course_id", course.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reader loop only detects the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		if err := s.pushCounts(ctx, conn, course.ID); err != nil {
			break
		}

		select {
		case <-ctx.Done():
			slog.Info("presence stream disconnected", "course_id", course.ID)
			return
		case <-ticker.C:
		}
	}

	slog.Info("presence stream closed", "course_id", course.ID)
}

func (s *Server) pushCounts(ctx context.Context, conn *websocket.Conn, courseID string) error {
	msg := StreamMessage{Type: "counts", CourseID: courseID}

	counts, err := s.presence.GetLiveCounts(ctx, courseID)
	if err != nil {
		slog.Warn("failed to read live counts for stream", "course_id", courseID, "error", err)
		msg = StreamMessage{Type: "error", Message: "live counts unavailable"}
	} else {
		msg.Counts = counts
	}

	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(msg); err != nil {
		slog.Debug("failed to send stream message", "error", err)
		return err
	}
	return nil
}
