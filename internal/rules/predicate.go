package rules

import "github.com/terra-clan/learning-engine/internal/models"

// VideoCompletionThreshold is the watched percentage at which a video counts as seen
const VideoCompletionThreshold = 90.0

// IsTopicComplete evaluates the conjunction of the topic's present
// requirements against the latest signals. Absent requirements are not
// checked, so a topic with none is complete as soon as it is visited.
// A nil topic is never complete.
func IsTopicComplete(topic *models.Topic, s models.TopicSignals) bool {
	if topic == nil {
		return false
	}

	if topic.RequiresVideo() && s.Video.WatchedPercentage < VideoCompletionThreshold {
		return false
	}

	// any attempt counts, score is not gating
	if topic.RequiresQuiz() && !s.Quiz.Attempted {
		return false
	}

	if topic.RequiresMiniTask() && !s.MiniTask.Completed {
		return false
	}

	if topic.RequiresReading() && !s.Reading.Completed {
		return false
	}

	return true
}

// MissingRequirements lists the requirement names that are present on the
// topic but not yet satisfied. Used for diagnostics on NotEligible.
func MissingRequirements(topic *models.Topic, s models.TopicSignals) []string {
	var missing []string
	if topic == nil {
		return missing
	}
	if topic.RequiresVideo() && s.Video.WatchedPercentage < VideoCompletionThreshold {
		missing = append(missing, "video")
	}
	if topic.RequiresQuiz() && !s.Quiz.Attempted {
		missing = append(missing, "quiz")
	}
	if topic.RequiresMiniTask() && !s.MiniTask.Completed {
		missing = append(missing, "mini_task")
	}
	if topic.RequiresReading() && !s.Reading.Completed {
		missing = append(missing, "reading")
	}
	return missing
}
