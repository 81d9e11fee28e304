package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/learning-engine/internal/models"
	"github.com/terra-clan/learning-engine/internal/progress"
)

// PostgresRepository implements progress.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ progress.Repository = (*PostgresRepository)(nil)

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = 25
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	poolConfig.MinConns = 5
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the underlying pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// GetEnrollment retrieves the record for (course, student); nil when absent
func (r *PostgresRepository) GetEnrollment(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	row := r.pool.QueryRow(ctx, selectEnrollment+` WHERE course_id = $1 AND student_id = $2`, courseID, studentID)

	e, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return e, nil
}

// CreateEnrollment inserts a new enrollment record
func (r *PostgresRepository) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	cols, err := encodeEnrollment(e)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO enrollments (id, course_id, student_id, video_progress, quiz_results, task_submissions,
			reading_progress, completed_topics, completed_levels, progress, enrolled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.pool.Exec(ctx, query,
		e.ID,
		e.CourseID,
		e.StudentID,
		cols.video,
		cols.quiz,
		cols.tasks,
		cols.reading,
		nonNil(e.CompletedTopics),
		nonNil(e.CompletedLevels),
		e.Progress,
		e.EnrolledAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

// UpdateEnrollment locks the row, applies fn and writes the result in one
// transaction
func (r *PostgresRepository) UpdateEnrollment(ctx context.Context, courseID, studentID string, fn func(e *models.Enrollment) error) (*models.Enrollment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, selectEnrollment+` WHERE course_id = $1 AND student_id = $2 FOR UPDATE`, courseID, studentID)
	e, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, progress.ErrNotEnrolled
		}
		return nil, fmt.Errorf("failed to lock enrollment: %w", err)
	}

	if err := fn(e); err != nil {
		return nil, err
	}
	e.UpdatedAt = time.Now().UTC()

	cols, err := encodeEnrollment(e)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE enrollments
		SET video_progress = $3, quiz_results = $4, task_submissions = $5, reading_progress = $6,
			completed_topics = $7, completed_levels = $8, progress = $9, updated_at = $10
		WHERE course_id = $1 AND student_id = $2
	`

	_, err = tx.Exec(ctx, query,
		courseID,
		studentID,
		cols.video,
		cols.quiz,
		cols.tasks,
		cols.reading,
		nonNil(e.CompletedTopics),
		nonNil(e.CompletedLevels),
		e.Progress,
		e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update enrollment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit enrollment: %w", err)
	}
	return e, nil
}

// ListEnrollments returns all records for a course, newest first
func (r *PostgresRepository) ListEnrollments(ctx context.Context, courseID string) ([]*models.Enrollment, error) {
	rows, err := r.pool.Query(ctx, selectEnrollment+` WHERE course_id = $1 ORDER BY enrolled_at DESC`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}
	return enrollments, nil
}

type encodedColumns struct {
	video, quiz, tasks, reading []byte
}

func encodeEnrollment(e *models.Enrollment) (*encodedColumns, error) {
	var cols encodedColumns
	var err error

	if cols.video, err = json.Marshal(nonNil(e.VideoProgress)); err != nil {
		return nil, fmt.Errorf("failed to marshal video progress: %w", err)
	}
	if cols.quiz, err = json.Marshal(nonNil(e.QuizResults)); err != nil {
		return nil, fmt.Errorf("failed to marshal quiz results: %w", err)
	}
	if cols.tasks, err = json.Marshal(nonNil(e.TaskSubmissions)); err != nil {
		return nil, fmt.Errorf("failed to marshal task submissions: %w", err)
	}
	if cols.reading, err = json.Marshal(nonNil(e.ReadingProgress)); err != nil {
		return nil, fmt.Errorf("failed to marshal reading progress: %w", err)
	}
	return &cols, nil
}
