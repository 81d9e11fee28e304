package models

import "time"

// TaskType distinguishes the scope a task submission belongs to
type TaskType string

const (
	TaskMini     TaskType = "mini"     // keyed by topic ID
	TaskMajor    TaskType = "major"    // keyed by level ID
	TaskCapstone TaskType = "capstone" // keyed by course ID
)

// VideoProgress is the latest watch state for a topic's video
type VideoProgress struct {
	TopicID              string    `json:"topicId"`
	WatchedPercentage    float64   `json:"watchedPercentage"`
	LastWatchedTimestamp float64   `json:"lastWatchedTimestamp"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// QuizResult is the latest quiz attempt for a topic
type QuizResult struct {
	TopicID     string    `json:"topicId"`
	Attempted   bool      `json:"attempted"`
	Score       float64   `json:"score"`
	Answers     []int     `json:"answers,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// TaskSubmission is the latest submission for a (task, type) pair
type TaskSubmission struct {
	TaskID         string    `json:"taskId"`
	TaskType       TaskType  `json:"taskType"`
	SubmissionType string    `json:"submissionType"`
	Content        string    `json:"content"`
	Completed      bool      `json:"completed"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// ReadingProgress records whether the reading material was finished
type ReadingProgress struct {
	TopicID     string     `json:"topicId"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Enrollment is the authoritative progress record for one student in one course.
// Progress is derived by the server and read-only to clients.
type Enrollment struct {
	ID              string            `json:"id"`
	CourseID        string            `json:"courseId"`
	StudentID       string            `json:"studentId"`
	VideoProgress   []VideoProgress   `json:"videoProgress"`
	QuizResults     []QuizResult      `json:"quizResults"`
	TaskSubmissions []TaskSubmission  `json:"taskSubmissions"`
	ReadingProgress []ReadingProgress `json:"readingProgress"`
	CompletedTopics []string          `json:"completedTopics"`
	CompletedLevels []string          `json:"completedLevels"`
	Progress        int               `json:"progress"`
	EnrolledAt      time.Time         `json:"enrolledAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Video returns the video progress for a topic, if any
func (e *Enrollment) Video(topicID string) (VideoProgress, bool) {
	if e == nil {
		return VideoProgress{}, false
	}
	for _, v := range e.VideoProgress {
		if v.TopicID == topicID {
			return v, true
		}
	}
	return VideoProgress{}, false
}

// Quiz returns the quiz result for a topic, if any
func (e *Enrollment) Quiz(topicID string) (QuizResult, bool) {
	if e == nil {
		return QuizResult{}, false
	}
	for _, q := range e.QuizResults {
		if q.TopicID == topicID {
			return q, true
		}
	}
	return QuizResult{}, false
}

// Task returns the submission for a (task, type) pair, if any
func (e *Enrollment) Task(taskID string, taskType TaskType) (TaskSubmission, bool) {
	if e == nil {
		return TaskSubmission{}, false
	}
	for _, s := range e.TaskSubmissions {
		if s.TaskID == taskID && s.TaskType == taskType {
			return s, true
		}
	}
	return TaskSubmission{}, false
}

// Reading returns the reading progress for a topic, if any
func (e *Enrollment) Reading(topicID string) (ReadingProgress, bool) {
	if e == nil {
		return ReadingProgress{}, false
	}
	for _, r := range e.ReadingProgress {
		if r.TopicID == topicID {
			return r, true
		}
	}
	return ReadingProgress{}, false
}

// HasCompletedTopic reports whether topicID is in CompletedTopics
func (e *Enrollment) HasCompletedTopic(topicID string) bool {
	if e == nil {
		return false
	}
	return contains(e.CompletedTopics, topicID)
}

// HasCompletedLevel reports whether levelID is in CompletedLevels
func (e *Enrollment) HasCompletedLevel(levelID string) bool {
	if e == nil {
		return false
	}
	return contains(e.CompletedLevels, levelID)
}

// Signals collects the four sub-signals relevant to a topic. Missing
// entries come back as their zero (not satisfied) value.
func (e *Enrollment) Signals(topicID string) TopicSignals {
	video, _ := e.Video(topicID)
	quiz, _ := e.Quiz(topicID)
	task, _ := e.Task(topicID, TaskMini)
	reading, _ := e.Reading(topicID)

	return TopicSignals{
		Video:    VideoSignal{WatchedPercentage: video.WatchedPercentage},
		Quiz:     QuizSignal{Attempted: quiz.Attempted, Score: quiz.Score},
		MiniTask: TaskSignal{Completed: task.Completed},
		Reading:  ReadingSignal{Completed: reading.Completed},
	}
}

// Clone returns a deep copy so callers can hold a snapshot without sharing slices
func (e *Enrollment) Clone() *Enrollment {
	if e == nil {
		return nil
	}
	out := *e
	out.VideoProgress = append([]VideoProgress(nil), e.VideoProgress...)
	out.QuizResults = make([]QuizResult, len(e.QuizResults))
	for i, q := range e.QuizResults {
		q.Answers = append([]int(nil), q.Answers...)
		out.QuizResults[i] = q
	}
	out.TaskSubmissions = append([]TaskSubmission(nil), e.TaskSubmissions...)
	out.ReadingProgress = append([]ReadingProgress(nil), e.ReadingProgress...)
	out.CompletedTopics = append([]string(nil), e.CompletedTopics...)
	out.CompletedLevels = append([]string(nil), e.CompletedLevels...)
	return &out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// TopicSignals are the latest sub-signal values for one topic
type TopicSignals struct {
	Video    VideoSignal
	Quiz     QuizSignal
	MiniTask TaskSignal
	Reading  ReadingSignal
}

// VideoSignal carries the watched percentage (0-100)
type VideoSignal struct {
	WatchedPercentage float64
}

// QuizSignal carries whether the quiz was attempted. Score is informational.
type QuizSignal struct {
	Attempted bool
	Score     float64
}

// TaskSignal carries whether a task submission was completed
type TaskSignal struct {
	Completed bool
}

// ReadingSignal carries whether the reading threshold was crossed
type ReadingSignal struct {
	Completed bool
}

// VideoProgressRequest is the body of a video progress submission
type VideoProgressRequest struct {
	TopicID              string  `json:"topicId" validate:"required"`
	WatchedPercentage    float64 `json:"watchedPercentage" validate:"gte=0,lte=100"`
	LastWatchedTimestamp float64 `json:"lastWatchedTimestamp" validate:"gte=0"`
}

// QuizSubmissionRequest is the body of a quiz submission
type QuizSubmissionRequest struct {
	TopicID string  `json:"topicId" validate:"required"`
	Answers []int   `json:"answers"`
	Score   float64 `json:"score" validate:"gte=0"`
}

// TaskSubmissionRequest is the body of a task submission
type TaskSubmissionRequest struct {
	TaskID         string   `json:"taskId" validate:"required"`
	TaskType       TaskType `json:"taskType" validate:"required,oneof=mini major capstone"`
	SubmissionType string   `json:"submissionType" validate:"required,oneof=link text file"`
	Content        string   `json:"content" validate:"required"`
}

// ReadingCompleteRequest is the body of a reading completion mark
type ReadingCompleteRequest struct {
	TopicID string `json:"topicId" validate:"required"`
}
