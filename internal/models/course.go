package models

import "strings"

// Course is the read-only content tree a learner progresses through.
type Course struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Levels      []*Level `json:"levels"`
}

// Level is an ordered group of topics. Index 0 is always navigable.
type Level struct {
	ID        string   `json:"id"`
	Index     int      `json:"index"`
	Title     string   `json:"title"`
	Topics    []*Topic `json:"topics"`
	MajorTask *Task    `json:"majorTask,omitempty"`
}

// Topic is a single learning unit. Every optional field that is set adds a
// requirement to the topic's completion.
type Topic struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Video    *Video           `json:"video,omitempty"`
	Reading  *ReadingMaterial `json:"reading,omitempty"`
	Quiz     *Quiz            `json:"quiz,omitempty"`
	MiniTask *Task            `json:"miniTask,omitempty"`
}

// Video is a watchable asset with a duration in seconds
type Video struct {
	URL      string `json:"url"`
	Duration int    `json:"duration"`
}

// ReadingMaterial holds the text a learner scrolls through
type ReadingMaterial struct {
	Content string `json:"content"`
}

// Quiz is a list of questions attached to a topic
type Quiz struct {
	Questions []Question `json:"questions"`
}

// Question is a single multiple-choice item
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

// Task is a mini task (per topic) or major task (per level)
type Task struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RequiresVideo reports whether the topic gates on watch percentage
func (t *Topic) RequiresVideo() bool {
	return t != nil && t.Video != nil
}

// RequiresReading reports whether the topic has reading content to finish
func (t *Topic) RequiresReading() bool {
	return t != nil && t.Reading != nil && strings.TrimSpace(t.Reading.Content) != ""
}

// RequiresQuiz reports whether the topic has at least one quiz question
func (t *Topic) RequiresQuiz() bool {
	return t != nil && t.Quiz != nil && len(t.Quiz.Questions) > 0
}

// RequiresMiniTask reports whether the topic carries a mini task
func (t *Topic) RequiresMiniTask() bool {
	return t != nil && t.MiniTask != nil
}

// Topic looks up a topic anywhere in the course
func (c *Course) Topic(topicID string) (*Topic, *Level) {
	if c == nil {
		return nil, nil
	}
	for _, lvl := range c.Levels {
		for _, t := range lvl.Topics {
			if t.ID == topicID {
				return t, lvl
			}
		}
	}
	return nil, nil
}

// Level looks up a level by ID
func (c *Course) Level(levelID string) *Level {
	if c == nil {
		return nil
	}
	for _, lvl := range c.Levels {
		if lvl.ID == levelID {
			return lvl
		}
	}
	return nil
}

// TopicCount returns the number of topics across all levels
func (c *Course) TopicCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, lvl := range c.Levels {
		n += len(lvl.Topics)
	}
	return n
}

// CourseSummary is the catalog listing form of a course
type CourseSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	LevelsCount int    `json:"levelsCount"`
	TopicsCount int    `json:"topicsCount"`
}

// Summary builds the catalog listing entry for the course
func (c *Course) Summary() *CourseSummary {
	return &CourseSummary{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		LevelsCount: len(c.Levels),
		TopicsCount: c.TopicCount(),
	}
}

// LevelStatus annotates a level with the caller's navigation state
type LevelStatus struct {
	ID        string `json:"id"`
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Unlocked  bool   `json:"unlocked"`
	Completed bool   `json:"completed"`
}
