// Package validation reports inconsistencies in stored habit data that the
// engine tolerates but a user may want to fix: duplicate titles, malformed
// or future completion dates, streaks the history cannot explain and badge
// ids the catalog does not know.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/restreak/internal/badges"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/utils"
)

type ConflictType string

const (
	ConflictDuplicateTitle       ConflictType = "duplicate_habit_title"
	ConflictInvalidDate          ConflictType = "invalid_completed_date"
	ConflictFutureCompletion     ConflictType = "future_completion"
	ConflictNegativeStreak       ConflictType = "negative_streak"
	ConflictStreakExceedsHistory ConflictType = "streak_exceeds_history"
	ConflictUnknownBadge         ConflictType = "unknown_badge"
)

type Conflict struct {
	Type        ConflictType
	Description string
	HabitIDs    []string
	Date        string
}

type Result struct {
	Conflicts []Conflict
}

func (r *Result) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// FormatReport renders one line per conflict.
func (r *Result) FormatReport() string {
	if !r.HasConflicts() {
		return "No conflicts detected."
	}
	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range r.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateHabits checks habits against today's date key.
func (v *Validator) ValidateHabits(habits []models.Habit, today string) Result {
	var res Result

	byTitle := make(map[string][]models.Habit)
	for _, h := range habits {
		key := strings.ToLower(strings.TrimSpace(h.Title))
		byTitle[key] = append(byTitle[key], h)
	}
	titles := make([]string, 0, len(byTitle))
	for k := range byTitle {
		titles = append(titles, k)
	}
	sort.Strings(titles)
	for _, k := range titles {
		group := byTitle[k]
		if len(group) < 2 {
			continue
		}
		ids := make([]string, len(group))
		for i, h := range group {
			ids[i] = h.ID
		}
		res.Conflicts = append(res.Conflicts, Conflict{
			Type:        ConflictDuplicateTitle,
			Description: fmt.Sprintf("%d habits are titled %q", len(group), group[0].Title),
			HabitIDs:    ids,
		})
	}

	for _, h := range habits {
		valid := 0
		for _, d := range h.CompletedDates {
			switch {
			case !utils.ValidDate(d):
				res.Conflicts = append(res.Conflicts, Conflict{
					Type:        ConflictInvalidDate,
					Description: fmt.Sprintf("%s has a malformed completion date %q", h.Title, d),
					HabitIDs:    []string{h.ID},
					Date:        d,
				})
			case utils.CompareDates(d, today) > 0:
				res.Conflicts = append(res.Conflicts, Conflict{
					Type:        ConflictFutureCompletion,
					Description: fmt.Sprintf("%s is marked done on %s, after today (%s)", h.Title, d, today),
					HabitIDs:    []string{h.ID},
					Date:        d,
				})
				valid++
			default:
				valid++
			}
		}

		switch {
		case h.Streak < 0:
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictNegativeStreak,
				Description: fmt.Sprintf("%s has a negative streak (%d)", h.Title, h.Streak),
				HabitIDs:    []string{h.ID},
			})
		case h.Streak > valid:
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictStreakExceedsHistory,
				Description: fmt.Sprintf("%s has a %d day streak but only %d completion(s)", h.Title, h.Streak, valid),
				HabitIDs:    []string{h.ID},
			})
		}
	}
	return res
}

// ValidateProfile flags persisted badge ids missing from the catalog.
func (v *Validator) ValidateProfile(p models.Profile) Result {
	var res Result
	for _, id := range p.Badges {
		if _, ok := badges.Lookup(id); !ok {
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictUnknownBadge,
				Description: fmt.Sprintf("profile lists unknown badge %q", id),
			})
		}
	}
	return res
}

// Merge appends other's conflicts.
func (r *Result) Merge(other Result) {
	r.Conflicts = append(r.Conflicts, other.Conflicts...)
}
