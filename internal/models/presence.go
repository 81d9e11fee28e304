package models

import "time"

// PresenceEntry is one (course, level, student) heartbeat record
type PresenceEntry struct {
	CourseID   string    `json:"courseId"`
	LevelID    string    `json:"levelId"`
	LevelIndex int       `json:"levelIndex"`
	StudentID  string    `json:"studentId"`
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar,omitempty"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// IsLive reports whether the entry is younger than the staleness window
func (e *PresenceEntry) IsLive(now time.Time, window time.Duration) bool {
	return now.Sub(e.LastSeenAt) < window
}

// LiveCounts maps level ID to the number of live students on that level
type LiveCounts map[string]int

// ActiveStudent is a roster row in the admin monitor view
type ActiveStudent struct {
	LevelID              string    `json:"levelId"`
	StudentID            string    `json:"studentId"`
	Name                 string    `json:"name"`
	Avatar               string    `json:"avatar,omitempty"`
	LastSeenAt           time.Time `json:"lastSeenAt"`
	SecondsSinceLastSeen int       `json:"secondsSinceLastSeen"`
}

// LevelRoster groups active students by the level they are viewing
type LevelRoster struct {
	LevelID  string          `json:"levelId"`
	Students []ActiveStudent `json:"students"`
}

// HeartbeatRequest is the body of a presence heartbeat
type HeartbeatRequest struct {
	LevelID    string `json:"levelId" validate:"required"`
	LevelIndex int    `json:"levelIndex" validate:"gte=0"`
}

// HeartbeatResponse carries the course's live counts back to the learner
type HeartbeatResponse struct {
	Counts LiveCounts `json:"counts"`
}

// PresenceSettings are the server's presence timings, in seconds
type PresenceSettings struct {
	StalenessWindowSeconds   int `json:"stalenessWindowSeconds"`
	HeartbeatIntervalSeconds int `json:"heartbeatIntervalSeconds"`
	MonitorIntervalSeconds   int `json:"monitorIntervalSeconds"`
}
