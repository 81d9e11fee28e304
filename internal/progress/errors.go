package progress

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrTopicNotFound     = errors.New("topic not found")
	ErrNotEnrolled       = errors.New("student is not enrolled in course")
	ErrAlreadyCompleted  = errors.New("topic already completed")
	ErrNotEligible       = errors.New("topic requirements not met")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrUnauthenticated   = errors.New("not authenticated")
)

// FetchError is a transient failure reading progress. Callers retry on the
// next natural trigger instead of surfacing it.
type FetchError struct {
	CourseID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch progress for course %s: %v", e.CourseID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SubmissionError is a rejected sub-signal or completion command. It is
// shown to the learner as a transient notice and never alters local state.
type SubmissionError struct {
	Op       string
	CourseID string
	UnitID   string
	Err      error
}

func (e *SubmissionError) Error() string {
	if e.UnitID != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.CourseID, e.UnitID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.CourseID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is (or wraps) a FetchError
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
