package rules

import "github.com/terra-clan/learning-engine/internal/models"

// IsLevelUnlocked reports whether the level at levelIndex is navigable.
// Level 0 is always unlocked; level i is unlocked iff level i-1 is in
// completedLevels. Only one step back is checked: CascadeLevels is what
// keeps completedLevels populated in order.
func IsLevelUnlocked(levelIndex int, completedLevels []string, levels []*models.Level) bool {
	if levelIndex == 0 {
		return true
	}
	if levelIndex < 0 || levelIndex >= len(levels) {
		return false
	}
	prev := levels[levelIndex-1]
	if prev == nil {
		return false
	}
	return containsID(completedLevels, prev.ID)
}

// IsLevelComplete reports whether every topic of the level is in
// completedTopics. The level's major task is not gating.
func IsLevelComplete(level *models.Level, completedTopics []string) bool {
	if level == nil {
		return false
	}
	for _, t := range level.Topics {
		if !containsID(completedTopics, t.ID) {
			return false
		}
	}
	return true
}

// CascadeLevels returns completedLevels extended with every level whose
// topics are all complete and whose predecessor is already complete,
// walking levels in order. Existing entries are preserved as-is.
func CascadeLevels(levels []*models.Level, completedTopics, completedLevels []string) []string {
	out := append([]string(nil), completedLevels...)

	for i, lvl := range levels {
		if containsID(out, lvl.ID) {
			continue
		}
		if !IsLevelUnlocked(i, out, levels) {
			break
		}
		if !IsLevelComplete(lvl, completedTopics) {
			break
		}
		out = append(out, lvl.ID)
	}

	return out
}

// LevelStatuses annotates each level of the course with unlocked/completed
// for the given enrollment. A nil enrollment yields only level 0 unlocked.
func LevelStatuses(course *models.Course, e *models.Enrollment) []models.LevelStatus {
	if course == nil {
		return nil
	}

	var completed []string
	if e != nil {
		completed = e.CompletedLevels
	}

	statuses := make([]models.LevelStatus, 0, len(course.Levels))
	for i, lvl := range course.Levels {
		statuses = append(statuses, models.LevelStatus{
			ID:        lvl.ID,
			Index:     lvl.Index,
			Title:     lvl.Title,
			Unlocked:  IsLevelUnlocked(i, completed, course.Levels),
			Completed: containsID(completed, lvl.ID),
		})
	}
	return statuses
}

// ProgressPercent derives the 0-100 course progress from completed topics
func ProgressPercent(course *models.Course, completedTopics []string) int {
	total := course.TopicCount()
	if total == 0 {
		return 0
	}

	done := 0
	for _, lvl := range course.Levels {
		for _, t := range lvl.Topics {
			if containsID(completedTopics, t.ID) {
				done++
			}
		}
	}
	return done * 100 / total
}

func containsID(list []string, id string) bool {
	for _, s := range list {
		if s == id {
			return true
		}
	}
	return false
}
