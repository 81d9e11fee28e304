package storage

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/terra-clan/learning-engine/internal/models"
)

const selectEnrollment = `
	SELECT id, course_id, student_id, video_progress, quiz_results, task_submissions,
		reading_progress, completed_topics, completed_levels, progress, enrolled_at, updated_at
	FROM enrollments`

// scanEnrollment reads one enrollment row from a pgx.Row or pgx.Rows
func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	var e models.Enrollment
	var videoJSON, quizJSON, tasksJSON, readingJSON []byte

	err := row.Scan(
		&e.ID,
		&e.CourseID,
		&e.StudentID,
		&videoJSON,
		&quizJSON,
		&tasksJSON,
		&readingJSON,
		&e.CompletedTopics,
		&e.CompletedLevels,
		&e.Progress,
		&e.EnrolledAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"video progress", videoJSON, &e.VideoProgress},
		{"quiz results", quizJSON, &e.QuizResults},
		{"task submissions", tasksJSON, &e.TaskSubmissions},
		{"reading progress", readingJSON, &e.ReadingProgress},
	}
	for _, f := range fields {
		if f.raw == nil {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", f.name, err)
		}
	}

	return &e, nil
}

// nonNil keeps NOT NULL array and jsonb columns from receiving NULL
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
