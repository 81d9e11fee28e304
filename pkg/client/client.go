package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/learning-engine/internal/models"
	"github.com/terra-clan/learning-engine/internal/presence"
	"github.com/terra-clan/learning-engine/internal/progress"
)

// Client is a Go SDK for the learning-engine API. It implements
// progress.Service and presence.Reporter/Reader for the token's owner.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

var (
	_ progress.Service  = (*Client)(nil)
	_ presence.Reporter = (*Client)(nil)
	_ presence.Reader   = (*Client)(nil)
)

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new learning-engine client
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetToken replaces the bearer token; an empty token signs the client out
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Authenticated reports whether a bearer token is set
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// APIError is a non-2xx response from the API. It unwraps to the matching
// domain sentinel so callers can use errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "course_not_found":
		return progress.ErrCourseNotFound
	case "topic_not_found":
		return progress.ErrTopicNotFound
	case "not_enrolled":
		return progress.ErrNotEnrolled
	case "already_completed":
		return progress.ErrAlreadyCompleted
	case "not_eligible":
		return progress.ErrNotEligible
	case "invalid_submission":
		return progress.ErrInvalidSubmission
	case "unauthorized":
		return progress.ErrUnauthenticated
	}
	return nil
}

// Catalog

// ListCourses retrieves the course catalog
func (c *Client) ListCourses(ctx context.Context) ([]*models.CourseSummary, error) {
	var data struct {
		Courses []*models.CourseSummary `json:"courses"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/courses", nil, &data); err != nil {
		return nil, err
	}
	return data.Courses, nil
}

// GetCourse retrieves a course tree
func (c *Client) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	var course models.Course
	if err := c.call(ctx, http.MethodGet, coursePath(courseID, ""), nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListLevels retrieves levels annotated for the caller
func (c *Client) ListLevels(ctx context.Context, courseID string) ([]models.LevelStatus, error) {
	var data struct {
		Levels []models.LevelStatus `json:"levels"`
	}
	if err := c.call(ctx, http.MethodGet, coursePath(courseID, "/levels"), nil, &data); err != nil {
		return nil, err
	}
	return data.Levels, nil
}

// Progress

// Enroll creates the caller's enrollment if missing
func (c *Client) Enroll(ctx context.Context, courseID string) (*models.Enrollment, error) {
	return c.enrollment(ctx, http.MethodPost, coursePath(courseID, "/enroll"), nil)
}

func (c *Client) GetProgress(ctx context.Context, courseID string) (*models.Enrollment, error) {
	return c.enrollment(ctx, http.MethodGet, coursePath(courseID, "/progress"), nil)
}

func (c *Client) SubmitVideoProgress(ctx context.Context, courseID string, req models.VideoProgressRequest) (*models.Enrollment, error) {
	return c.enrollment(ctx, http.MethodPost, coursePath(courseID, "/progress/video"), req)
}

func (c *Client) SubmitQuizResult(ctx context.Context, courseID string, req models.QuizSubmissionRequest) (*models.Enrollment, error) {
	return c.enrollment(ctx, http.MethodPost, coursePath(courseID, "/progress/quiz"), req)
}

func (c *Client) SubmitTask(ctx context.Context, courseID string, req models.TaskSubmissionRequest) (*models.Enrollment, error) {
	return c.enrollment(ctx, http.MethodPost, coursePath(courseID, "/progress/tasks"), req)
}

func (c *Client) MarkReadingComplete(ctx context.Context, courseID, topicID string) (*models.Enrollment, error) {
	return c.enrollment(ctx, http.MethodPost, coursePath(courseID, "/progress/reading"), models.ReadingCompleteRequest{TopicID: topicID})
}

func (c *Client) CompleteTopic(ctx context.Context, courseID, topicID string) (*models.Enrollment, error) {
	path := coursePath(courseID, "/progress/topics/"+url.PathEscape(topicID)+"/complete")
	return c.enrollment(ctx, http.MethodPost, path, nil)
}

// ListEnrollments retrieves every enrollment of a course (admin)
func (c *Client) ListEnrollments(ctx context.Context, courseID string) ([]*models.Enrollment, error) {
	var data struct {
		Enrollments []*models.Enrollment `json:"enrollments"`
	}
	if err := c.call(ctx, http.MethodGet, coursePath(courseID, "/enrollments"), nil, &data); err != nil {
		return nil, err
	}
	return data.Enrollments, nil
}

func (c *Client) enrollment(ctx context.Context, method, path string, body interface{}) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := c.call(ctx, method, path, body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Presence

func (c *Client) Heartbeat(ctx context.Context, courseID, levelID string, levelIndex int) (models.LiveCounts, error) {
	var resp models.HeartbeatResponse
	req := models.HeartbeatRequest{LevelID: levelID, LevelIndex: levelIndex}
	if err := c.call(ctx, http.MethodPost, coursePath(courseID, "/presence/heartbeat"), req, &resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

func (c *Client) GoOffline(ctx context.Context, courseID string) error {
	return c.call(ctx, http.MethodPost, coursePath(courseID, "/presence/offline"), nil, nil)
}

func (c *Client) GetLiveCounts(ctx context.Context, courseID string) (models.LiveCounts, error) {
	var data struct {
		Counts models.LiveCounts `json:"counts"`
	}
	if err := c.call(ctx, http.MethodGet, coursePath(courseID, "/presence/counts"), nil, &data); err != nil {
		return nil, err
	}
	if data.Counts == nil {
		data.Counts = models.LiveCounts{}
	}
	return data.Counts, nil
}

func (c *Client) GetActiveStudents(ctx context.Context, courseID string) ([]models.ActiveStudent, error) {
	var data struct {
		Students []models.ActiveStudent `json:"students"`
	}
	if err := c.call(ctx, http.MethodGet, coursePath(courseID, "/presence/students"), nil, &data); err != nil {
		return nil, err
	}
	return data.Students, nil
}

// PresenceSettings retrieves the server's presence timings
func (c *Client) PresenceSettings(ctx context.Context) (*models.PresenceSettings, error) {
	var settings models.PresenceSettings
	if err := c.call(ctx, http.MethodGet, "/api/v1/presence/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// StreamCounts subscribes to the live-count websocket and calls fn for
// every frame until ctx is cancelled or the connection drops
func (c *Client) StreamCounts(ctx context.Context, courseID string, fn func(models.LiveCounts)) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + coursePath(courseID, "/presence/stream")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.bearer())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var msg struct {
			Type   string            `json:"type"`
			Counts models.LiveCounts `json:"counts"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream closed: %w", err)
		}
		if msg.Type == "counts" {
			fn(msg.Counts)
		}
	}
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

func coursePath(courseID, suffix string) string {
	return "/api/v1/courses/" + url.PathEscape(courseID) + suffix
}

// call performs a request and decodes the response envelope into out
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	token := c.bearer()
	if token == "" && strings.HasPrefix(path, "/api/") {
		return progress.ErrUnauthenticated
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Code: "http_error", Message: strings.TrimSpace(string(respBody))}
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success || resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Code: "unknown_error"}
		if result.Error != nil {
			apiErr.Code = result.Error.Code
			apiErr.Message = result.Error.Message
		}
		return apiErr
	}

	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}
	return nil
}
