package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Frequency is informational only; it never changes streak arithmetic.
type Frequency string

const (
	FrequencyDaily    Frequency = "Daily"
	FrequencyWeekly   Frequency = "Weekly"
	FrequencyWeekdays Frequency = "Weekdays"
)

// Frequencies lists the accepted frequencies in display order.
var Frequencies = []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyWeekdays}

// ParseFrequency accepts any casing of a known frequency. Empty input means Daily.
func ParseFrequency(s string) (Frequency, error) {
	if strings.TrimSpace(s) == "" {
		return FrequencyDaily, nil
	}
	for _, f := range Frequencies {
		if strings.EqualFold(string(f), strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown frequency %q (expected Daily, Weekly or Weekdays)", s)
}

// Habit represents a recurring practice and its completion history.
//
// CompletedDates is a set of YYYY-MM-DD keys. Streak is a stored counter
// moved by toggles; it is not recomputed from CompletedDates.
type Habit struct {
	ID             string    `json:"id" firestore:"-"`
	Title          string    `json:"title" firestore:"title"`
	Frequency      Frequency `json:"frequency" firestore:"frequency"`
	Icon           Icon      `json:"icon" firestore:"icon"`
	CompletedDates []string  `json:"completedDates" firestore:"completedDates"`
	Streak         int       `json:"streak" firestore:"streak"`
	CreatedAt      time.Time `json:"createdAt" firestore:"createdAt"`
}

// HasCompleted reports whether day is in the habit's completion set.
func (h Habit) HasCompleted(day string) bool {
	for _, d := range h.CompletedDates {
		if d == day {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with h.
func (h Habit) Clone() Habit {
	c := h
	c.CompletedDates = append([]string(nil), h.CompletedDates...)
	return c
}

// NormalizeDates returns the sorted, de-duplicated form of a completion set.
func NormalizeDates(dates []string) []string {
	if len(dates) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// SortByCreatedDesc orders habits newest first, the display order of every view.
// Ties fall back to id so the order is stable across snapshots.
func SortByCreatedDesc(habits []Habit) {
	sort.SliceStable(habits, func(i, j int) bool {
		if habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].ID < habits[j].ID
		}
		return habits[i].CreatedAt.After(habits[j].CreatedAt)
	})
}
