package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terra-clan/learning-engine/internal/models"
)

func videoTopic() *models.Topic {
	return &models.Topic{ID: "t1", Video: &models.Video{URL: "v.mp4", Duration: 600}}
}

func quizTopic() *models.Topic {
	return &models.Topic{ID: "t2", Quiz: &models.Quiz{Questions: []models.Question{{Prompt: "2+2?", Options: []string{"3", "4"}, Answer: 1}}}}
}

func TestIsTopicComplete_NoRequirements(t *testing.T) {
	topic := &models.Topic{ID: "empty"}

	assert.True(t, IsTopicComplete(topic, models.TopicSignals{}))
	assert.True(t, IsTopicComplete(topic, models.TopicSignals{Quiz: models.QuizSignal{Attempted: false}}))
}

func TestIsTopicComplete_NilTopic(t *testing.T) {
	assert.False(t, IsTopicComplete(nil, models.TopicSignals{}))
}

func TestIsTopicComplete_VideoBoundary(t *testing.T) {
	topic := videoTopic()

	tests := []struct {
		pct  float64
		want bool
	}{
		{0, false},
		{89.9, false},
		{90.0, true},
		{95, true},
		{100, true},
	}

	for _, tt := range tests {
		got := IsTopicComplete(topic, models.TopicSignals{Video: models.VideoSignal{WatchedPercentage: tt.pct}})
		assert.Equal(t, tt.want, got, "watched %.1f%%", tt.pct)
	}
}

func TestIsTopicComplete_QuizScoreNotGating(t *testing.T) {
	topic := quizTopic()

	assert.True(t, IsTopicComplete(topic, models.TopicSignals{Quiz: models.QuizSignal{Attempted: true, Score: 0}}))
	assert.False(t, IsTopicComplete(topic, models.TopicSignals{Quiz: models.QuizSignal{Attempted: false, Score: 100}}))
}

func TestIsTopicComplete_EmptyQuizAndBlankReadingAreAbsent(t *testing.T) {
	topic := &models.Topic{
		ID:      "t3",
		Quiz:    &models.Quiz{},
		Reading: &models.ReadingMaterial{Content: "   "},
	}

	assert.True(t, IsTopicComplete(topic, models.TopicSignals{}))
}

func TestIsTopicComplete_AllRequirements(t *testing.T) {
	topic := &models.Topic{
		ID:       "full",
		Video:    &models.Video{Duration: 60},
		Reading:  &models.ReadingMaterial{Content: "read me"},
		Quiz:     &models.Quiz{Questions: []models.Question{{Prompt: "q"}}},
		MiniTask: &models.Task{Title: "build it"},
	}

	all := models.TopicSignals{
		Video:    models.VideoSignal{WatchedPercentage: 90},
		Quiz:     models.QuizSignal{Attempted: true},
		MiniTask: models.TaskSignal{Completed: true},
		Reading:  models.ReadingSignal{Completed: true},
	}
	assert.True(t, IsTopicComplete(topic, all))
	assert.Empty(t, MissingRequirements(topic, all))

	noTask := all
	noTask.MiniTask.Completed = false
	assert.False(t, IsTopicComplete(topic, noTask))
	assert.Equal(t, []string{"mini_task"}, MissingRequirements(topic, noTask))

	noReading := all
	noReading.Reading.Completed = false
	assert.False(t, IsTopicComplete(topic, noReading))
	assert.Equal(t, []string{"reading"}, MissingRequirements(topic, noReading))
}

func TestIsTopicComplete_VideoAndQuizScenario(t *testing.T) {
	topic := videoTopic()
	topic.Quiz = quizTopic().Quiz

	s := models.TopicSignals{Video: models.VideoSignal{WatchedPercentage: 95}}
	assert.False(t, IsTopicComplete(topic, s))
	assert.Equal(t, []string{"quiz"}, MissingRequirements(topic, s))

	s.Quiz.Attempted = true
	assert.True(t, IsTopicComplete(topic, s))
}
