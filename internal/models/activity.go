package models

import "time"

type ActivityType string

const (
	ActivityCompletion ActivityType = "completion"
)

// ActivityEvent is an append-only record of something the user did.
type ActivityEvent struct {
	ID        string       `json:"id" firestore:"-"`
	Text      string       `json:"text" firestore:"text"`
	Type      ActivityType `json:"type" firestore:"type"`
	Timestamp time.Time    `json:"timestamp" firestore:"timestamp"`
}

// CompletionText is the activity text recorded when a habit is marked done.
func CompletionText(title string) string {
	return `Completed "` + title + `"`
}
