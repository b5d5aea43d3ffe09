package engine

import (
	"fmt"
	"time"

	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/storage"
)

// ActivityRow is an activity event prepared for display.
type ActivityRow struct {
	models.ActivityEvent
	Ago string `json:"ago"`
}

// RecentActivity returns the n newest events, newest first, without touching events.
func RecentActivity(events []models.ActivityEvent, n int, now time.Time) []ActivityRow {
	sorted := append([]models.ActivityEvent(nil), events...)
	storage.SortActivity(sorted)
	sorted = storage.LimitActivity(n)(sorted)

	rows := make([]ActivityRow, len(sorted))
	for i, e := range sorted {
		rows[i] = ActivityRow{ActivityEvent: e, Ago: TimeAgo(e.Timestamp, now)}
	}
	return rows
}

// TimeAgo renders ts relative to now: "just now", "5m ago", "3h ago", "2d ago",
// and a plain date for anything older than a week.
func TimeAgo(ts, now time.Time) string {
	if ts.IsZero() {
		return "just now"
	}
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	default:
		return ts.In(now.Location()).Format("Jan 2, 2006")
	}
}
