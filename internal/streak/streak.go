// Package streak holds the toggle arithmetic for a single habit. It is
// pure: it returns the patch to write and the activity to record, and
// leaves both to the caller.
package streak

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/logger"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/storage"
)

type Action int

const (
	Complete Action = iota
	Undo
)

func (a Action) String() string {
	if a == Undo {
		return "undo"
	}
	return "complete"
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

var (
	ErrAlreadyCompleted = stderrors.New("habit already completed for this day")
	ErrNothingToUndo    = stderrors.New("habit has no completion for this day")
)

// Result describes one toggle. Habit is the state the store will hold once
// Patch commits. Activity is nil for undo.
type Result struct {
	Action   Action
	Day      string
	Habit    models.Habit
	Patch    storage.Patch
	Activity *models.ActivityEvent
}

// Toggle completes day if it is absent from the habit and undoes it otherwise.
//
// Undo lowers the streak by one and never below zero. It does not restore
// whatever streak existed before the original completion, and it records
// no activity.
func Toggle(h models.Habit, day string, now time.Time) Result {
	if h.HasCompleted(day) {
		return undo(h, day)
	}
	return complete(h, day, now)
}

// MarkComplete is the guarded form of the complete half of Toggle.
func MarkComplete(h models.Habit, day string, now time.Time) (Result, error) {
	if h.HasCompleted(day) {
		return Result{}, fmt.Errorf("%s on %s: %w", h.ID, day, ErrAlreadyCompleted)
	}
	return complete(h, day, now), nil
}

// MarkUndone is the guarded form of the undo half of Toggle.
func MarkUndone(h models.Habit, day string) (Result, error) {
	if !h.HasCompleted(day) {
		return Result{}, fmt.Errorf("%s on %s: %w", h.ID, day, ErrNothingToUndo)
	}
	return undo(h, day), nil
}

func complete(h models.Habit, day string, now time.Time) Result {
	n := clamp(h.ID, h.Streak) + 1
	next := h.Clone()
	next.CompletedDates = models.NormalizeDates(append(next.CompletedDates, day))
	next.Streak = n
	return Result{
		Action: Complete,
		Day:    day,
		Habit:  next,
		Patch: storage.Patch{
			storage.AddToSet(storage.FieldCompletedDates, day),
			storage.Set(storage.FieldStreak, n),
		},
		Activity: &models.ActivityEvent{
			Text:      models.CompletionText(h.Title),
			Type:      models.ActivityCompletion,
			Timestamp: now,
		},
	}
}

func undo(h models.Habit, day string) Result {
	n := clamp(h.ID, h.Streak-1)
	next := h.Clone()
	dates := make([]string, 0, len(next.CompletedDates))
	for _, d := range next.CompletedDates {
		if d != day {
			dates = append(dates, d)
		}
	}
	next.CompletedDates = dates
	next.Streak = n
	return Result{
		Action: Undo,
		Day:    day,
		Habit:  next,
		Patch: storage.Patch{
			storage.RemoveFromSet(storage.FieldCompletedDates, day),
			storage.Set(storage.FieldStreak, n),
		},
	}
}

func clamp(id string, n int) int {
	if n >= 0 {
		return n
	}
	if n < -1 {
		// -1 is the ordinary undo-at-zero case; anything lower means a corrupt stored value.
		logger.Warn("Clamped negative streak", "error", errors.Invariant("toggle", "habit", id, fmt.Errorf("streak %d", n)))
	}
	return 0
}
