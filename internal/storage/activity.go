package storage

import (
	"sort"

	"github.com/julianstephens/restreak/internal/models"
)

// ActivityWindow is how many of the newest events a backend keeps in its feed.
const ActivityWindow = 50

// SortActivity orders events newest first, breaking timestamp ties by id.
func SortActivity(events []models.ActivityEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].ID > events[j].ID
		}
		return events[i].Timestamp.After(events[j].Timestamp)
	})
}

// LimitActivity returns a feed transform that keeps the first n events.
// A non-positive n keeps everything.
func LimitActivity(n int) func([]models.ActivityEvent) []models.ActivityEvent {
	return func(events []models.ActivityEvent) []models.ActivityEvent {
		if n <= 0 || len(events) <= n {
			return events
		}
		return events[:n]
	}
}
