package presence

import (
	"context"
	"time"

	"github.com/terra-clan/learning-engine/internal/models"
)

// Store defines the interface for heartbeat persistence. Entries are keyed
// by (course, level, student); reads return stale entries too and the
// Service applies the staleness window.
type Store interface {
	// Touch upserts an entry, replacing LastSeenAt
	Touch(ctx context.Context, entry models.PresenceEntry) error

	// Remove deletes every entry of the student in the course
	Remove(ctx context.Context, courseID, studentID string) (int, error)

	// List returns all entries for a course
	List(ctx context.Context, courseID string) ([]models.PresenceEntry, error)

	// Prune deletes entries last seen before the cutoff
	Prune(ctx context.Context, before time.Time) (int, error)

	Ping(ctx context.Context) error
	Close() error
}
