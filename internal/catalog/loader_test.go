package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDir_BundledCourses(t *testing.T) {
	coursesDir := filepath.Join("..", "..", "courses")
	if _, err := os.Stat(coursesDir); os.IsNotExist(err) {
		t.Skip("courses directory not found, skipping")
	}

	loader := NewLoader()
	require.NoError(t, loader.LoadFromDir(coursesDir))

	course := loader.Get("go-basics")
	require.NotNil(t, course)
	assert.Equal(t, "Go Basics", course.Title)
	require.Len(t, course.Levels, 3)
	assert.Equal(t, 6, course.TopicCount())

	topic, level := course.Topic("variables")
	require.NotNil(t, topic)
	assert.Equal(t, "level-1", level.ID)
	assert.True(t, topic.RequiresVideo())
	assert.True(t, topic.RequiresQuiz())
	assert.False(t, topic.RequiresReading())

	recap, _ := course.Topic("recap")
	require.NotNil(t, recap)
	assert.False(t, recap.RequiresVideo() || recap.RequiresQuiz() || recap.RequiresReading() || recap.RequiresMiniTask())

	assert.NotNil(t, course.Level("level-2").MajorTask)
}

func TestParse_OrdersLevelsByIndex(t *testing.T) {
	doc := []byte(`
id: c1
title: Ordered
levels:
  - id: b
    index: 1
  - id: a
    index: 0
`)
	course, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "a", course.Levels[0].ID)
	assert.Equal(t, "b", course.Levels[1].ID)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing id", "title: x\nlevels: [{id: l1}]"},
		{"missing title", "id: c1\nlevels: [{id: l1}]"},
		{"no levels", "id: c1\ntitle: x"},
		{"duplicate level", "id: c1\ntitle: x\nlevels: [{id: l1}, {id: l1}]"},
		{"duplicate topic", "id: c1\ntitle: x\nlevels: [{id: l1, topics: [{id: t}]}, {id: l2, topics: [{id: t}]}]"},
		{"gap in indexes", "id: c1\ntitle: x\nlevels: [{id: l1, index: 0}, {id: l2, index: 2}]"},
		{"not yaml", "id: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoader_BlankReadingIsNotARequirement(t *testing.T) {
	course, err := Parse([]byte("id: c1\ntitle: x\nlevels:\n  - id: l1\n    topics:\n      - id: t1\n        reading: \"   \"\n"))
	require.NoError(t, err)

	topic, _ := course.Topic("t1")
	assert.Nil(t, topic.Reading)
}

func TestLoader_ListIsSorted(t *testing.T) {
	loader := NewLoader()
	for _, id := range []string{"zeta", "alpha"} {
		c, err := Parse([]byte("id: " + id + "\ntitle: x\nlevels: [{id: l1}]"))
		require.NoError(t, err)
		loader.Add(c)
	}

	list := loader.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].ID)

	loader.Remove("alpha")
	assert.Nil(t, loader.Get("alpha"))
}
