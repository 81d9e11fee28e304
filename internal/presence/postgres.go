package presence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/terra-clan/learning-engine/internal/models"
)

// ErrSchemaMissing means the presence table does not exist yet
var ErrSchemaMissing = errors.New("presence_heartbeats table missing, run migrations")

// PostgresStore implements Store on the presence_heartbeats table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a database/sql pool with the lib/pq driver
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Touch(ctx context.Context, e models.PresenceEntry) error {
	query := `
		INSERT INTO presence_heartbeats (course_id, level_id, level_index, student_id, name, avatar, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (course_id, level_id, student_id) DO UPDATE SET
			level_index = EXCLUDED.level_index,
			name = EXCLUDED.name,
			avatar = EXCLUDED.avatar,
			last_seen_at = EXCLUDED.last_seen_at
	`

	_, err := s.db.ExecContext(ctx, query,
		e.CourseID, e.LevelID, e.LevelIndex, e.StudentID, e.Name, e.Avatar, e.LastSeenAt,
	)
	if err != nil {
		return wrapPQError("failed to touch presence", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, courseID, studentID string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM presence_heartbeats WHERE course_id = $1 AND student_id = $2`,
		courseID, studentID,
	)
	if err != nil {
		return 0, wrapPQError("failed to remove presence", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) List(ctx context.Context, courseID string) ([]models.PresenceEntry, error) {
	query := `
		SELECT course_id, level_id, level_index, student_id, name, avatar, last_seen_at
		FROM presence_heartbeats
		WHERE course_id = $1
		ORDER BY level_index, name
	`

	rows, err := s.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, wrapPQError("failed to list presence", err)
	}
	defer rows.Close()

	var entries []models.PresenceEntry
	for rows.Next() {
		var e models.PresenceEntry
		if err := rows.Scan(&e.CourseID, &e.LevelID, &e.LevelIndex, &e.StudentID, &e.Name, &e.Avatar, &e.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan presence: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM presence_heartbeats WHERE last_seen_at < $1`, before,
	)
	if err != nil {
		return 0, wrapPQError("failed to prune presence", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// Ping checks the connection and that the schema is in place
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `SELECT 1 FROM presence_heartbeats LIMIT 0`)
	if err != nil {
		return wrapPQError("presence schema check failed", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func wrapPQError(msg string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "undefined_table" {
		return fmt.Errorf("%s: %w", msg, ErrSchemaMissing)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
