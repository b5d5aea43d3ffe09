package engine

import (
	"time"

	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/utils"
)

// Metrics are the dashboard and profile aggregates.
type Metrics struct {
	TotalHabits    int `json:"totalHabits"`
	CompletedToday int `json:"completedToday"`
	// CompletionRate is a whole percentage, 0 when there are no habits.
	CompletionRate int `json:"completionRate"`
	BestStreak     int `json:"bestStreak"`
	ActiveStreaks  int `json:"activeStreaks"`
	// DaysActive counts the join day as day one. 0 without a join date.
	DaysActive int `json:"daysActive"`
	// EarnedBadges is the persisted badge history count; it can lag the live set.
	EarnedBadges int `json:"earnedBadges"`
	TotalStreak  int `json:"totalStreak"`
}

// ComputeMetrics aggregates habits and profile as of today/now.
func ComputeMetrics(habits []models.Habit, profile models.Profile, today string, now time.Time) Metrics {
	m := Metrics{
		TotalHabits:  len(habits),
		EarnedBadges: len(profile.Badges),
	}
	for _, h := range habits {
		if h.HasCompleted(today) {
			m.CompletedToday++
		}
		if h.Streak > m.BestStreak {
			m.BestStreak = h.Streak
		}
		if h.Streak > 0 {
			m.ActiveStreaks++
			m.TotalStreak += h.Streak
		}
	}
	m.CompletionRate = completionRate(m.CompletedToday, m.TotalHabits)
	if profile.JoinDate != nil {
		m.DaysActive = utils.WholeDaysBetween(*profile.JoinDate, now) + 1
	}
	return m
}

// completionRate is round-half-up of 100*done/total in integer arithmetic.
func completionRate(done, total int) int {
	if total == 0 {
		return 0
	}
	return (200*done + total) / (2 * total)
}
