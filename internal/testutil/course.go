// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"sync"

	"github.com/terra-clan/learning-engine/internal/models"
)

// CourseID is the ID of the fixture course
const CourseID = "go-basics"

// Course returns a fresh three-level fixture course:
//
//	level-1: intro-video (video), variables (video+quiz), syntax-reading (reading)
//	level-2: first-program (mini task), recap (no requirements), major task
//	level-3: concurrency (video, reading, quiz, mini task)
func Course() *models.Course {
	quiz := func() *models.Quiz {
		return &models.Quiz{Questions: []models.Question{
			{Prompt: "Which keyword declares a variable?", Options: []string{"let", "var"}, Answer: 1},
		}}
	}

	return &models.Course{
		ID:    CourseID,
		Title: "Go Basics",
		Levels: []*models.Level{
			{
				ID:    "level-1",
				Index: 0,
				Title: "Getting started",
				Topics: []*models.Topic{
					{ID: "intro-video", Title: "Intro", Video: &models.Video{URL: "https://cdn.example/intro.mp4", Duration: 300}},
					{ID: "variables", Title: "Variables", Video: &models.Video{URL: "https://cdn.example/vars.mp4", Duration: 420}, Quiz: quiz()},
					{ID: "syntax-reading", Title: "Syntax", Reading: &models.ReadingMaterial{Content: "Go programs are made of packages."}},
				},
			},
			{
				ID:        "level-2",
				Index:     1,
				Title:     "First steps",
				MajorTask: &models.Task{Title: "CLI calculator"},
				Topics: []*models.Topic{
					{ID: "first-program", Title: "Hello", MiniTask: &models.Task{Title: "Print hello"}},
					{ID: "recap", Title: "Recap"},
				},
			},
			{
				ID:    "level-3",
				Index: 2,
				Title: "Concurrency",
				Topics: []*models.Topic{
					{
						ID:       "concurrency",
						Title:    "Goroutines",
						Video:    &models.Video{URL: "https://cdn.example/go.mp4", Duration: 900},
						Reading:  &models.ReadingMaterial{Content: "Channels connect goroutines."},
						Quiz:     quiz(),
						MiniTask: &models.Task{Title: "Fan-in"},
					},
				},
			},
		},
	}
}

// Courses is an in-memory course source keyed by ID
type Courses struct {
	mu      sync.RWMutex
	courses map[string]*models.Course
}

// NewCourses creates a source holding the given courses
func NewCourses(courses ...*models.Course) *Courses {
	c := &Courses{courses: make(map[string]*models.Course)}
	for _, course := range courses {
		c.courses[course.ID] = course
	}
	return c
}

// Get returns a course by ID
func (c *Courses) Get(id string) *models.Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.courses[id]
}

// List returns every course
func (c *Courses) List() []*models.Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]*models.Course, 0, len(c.courses))
	for _, course := range c.courses {
		result = append(result, course)
	}
	return result
}
