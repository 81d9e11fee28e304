package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/learning-engine/internal/models"
)

// Loader manages loading and caching of course definitions
type Loader struct {
	mu      sync.RWMutex
	courses map[string]*models.Course
}

// NewLoader creates a new course loader
func NewLoader() *Loader {
	return &Loader{
		courses: make(map[string]*models.Course),
	}
}

// LoadFromDir loads every course YAML from a directory. Both flat files
// (courses/go-basics.yaml) and per-course directories
// (courses/go-basics/course.yaml) are accepted.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading courses from directory", "dir", dir)

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("failed to read courses dir: %w", err)
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", filepath.Join("*", "course.yaml"), filepath.Join("*", "course.yml")} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load course", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("courses loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single course from a YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	course, err := Parse(data)
	if err != nil {
		return err
	}

	l.Add(course)

	slog.Info("course loaded",
		"id", course.ID,
		"levels", len(course.Levels),
		"topics", course.TopicCount(),
	)
	return nil
}

// Parse decodes and validates a course document
func Parse(data []byte) (*models.Course, error) {
	var cf courseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cf.ID == "" {
		return nil, fmt.Errorf("course id is required")
	}
	if cf.Title == "" {
		return nil, fmt.Errorf("course title is required")
	}
	if len(cf.Levels) == 0 {
		return nil, fmt.Errorf("course %s has no levels", cf.ID)
	}

	course := &models.Course{
		ID:          cf.ID,
		Title:       cf.Title,
		Description: cf.Description,
	}

	levelIDs := make(map[string]bool)
	topicIDs := make(map[string]bool)

	for pos, lf := range cf.Levels {
		if lf.ID == "" {
			return nil, fmt.Errorf("level %d: id is required", pos)
		}
		if levelIDs[lf.ID] {
			return nil, fmt.Errorf("duplicate level id %q", lf.ID)
		}
		levelIDs[lf.ID] = true

		index := pos
		if lf.Index != nil {
			index = *lf.Index
		}

		level := &models.Level{
			ID:        lf.ID,
			Index:     index,
			Title:     lf.Title,
			MajorTask: lf.MajorTask.toModel(),
		}

		for _, tf := range lf.Topics {
			if tf.ID == "" {
				return nil, fmt.Errorf("level %s: topic id is required", lf.ID)
			}
			if topicIDs[tf.ID] {
				return nil, fmt.Errorf("duplicate topic id %q", tf.ID)
			}
			topicIDs[tf.ID] = true

			level.Topics = append(level.Topics, tf.toModel())
		}

		course.Levels = append(course.Levels, level)
	}

	sort.SliceStable(course.Levels, func(i, j int) bool {
		return course.Levels[i].Index < course.Levels[j].Index
	})
	for i, lvl := range course.Levels {
		if lvl.Index != i {
			return nil, fmt.Errorf("level indexes must be contiguous from 0, got %d at position %d", lvl.Index, i)
		}
	}

	return course, nil
}

// Get retrieves a course by ID
func (l *Loader) Get(id string) *models.Course {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.courses[id]
}

// List returns all loaded courses ordered by ID
func (l *Loader) List() []*models.Course {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Course, 0, len(l.courses))
	for _, c := range l.courses {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Add programmatically adds a course
func (l *Loader) Add(course *models.Course) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.courses[course.ID] = course
}

// Remove removes a course by ID
func (l *Loader) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.courses, id)
}

// --- YAML file structs ---

type courseFile struct {
	ID          string      `yaml:"id"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Levels      []levelFile `yaml:"levels"`
}

type levelFile struct {
	ID        string      `yaml:"id"`
	Index     *int        `yaml:"index"`
	Title     string      `yaml:"title"`
	Topics    []topicFile `yaml:"topics"`
	MajorTask *taskFile   `yaml:"major_task"`
}

type topicFile struct {
	ID       string         `yaml:"id"`
	Title    string         `yaml:"title"`
	Video    *videoFile     `yaml:"video"`
	Reading  string         `yaml:"reading"`
	Quiz     []questionFile `yaml:"quiz"`
	MiniTask *taskFile      `yaml:"mini_task"`
}

type videoFile struct {
	URL      string `yaml:"url"`
	Duration int    `yaml:"duration"`
}

type questionFile struct {
	Prompt  string   `yaml:"prompt"`
	Options []string `yaml:"options"`
	Answer  int      `yaml:"answer"`
}

type taskFile struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

func (t *taskFile) toModel() *models.Task {
	if t == nil {
		return nil
	}
	return &models.Task{Title: t.Title, Description: t.Description}
}

func (tf topicFile) toModel() *models.Topic {
	topic := &models.Topic{
		ID:       tf.ID,
		Title:    tf.Title,
		MiniTask: tf.MiniTask.toModel(),
	}
	if tf.Video != nil {
		topic.Video = &models.Video{URL: tf.Video.URL, Duration: tf.Video.Duration}
	}
	if strings.TrimSpace(tf.Reading) != "" {
		topic.Reading = &models.ReadingMaterial{Content: tf.Reading}
	}
	if len(tf.Quiz) > 0 {
		quiz := &models.Quiz{}
		for _, q := range tf.Quiz {
			quiz.Questions = append(quiz.Questions, models.Question{
				Prompt:  q.Prompt,
				Options: q.Options,
				Answer:  q.Answer,
			})
		}
		topic.Quiz = quiz
	}
	return topic
}
