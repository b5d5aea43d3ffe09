package engine

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/julianstephens/restreak/internal/badges"
	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/logger"
	"github.com/julianstephens/restreak/internal/metrics"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/streak"
	"github.com/julianstephens/restreak/internal/utils"
)

var (
	validate  = validator.New()
	sanitizer = bluemonday.StrictPolicy()
)

// NewHabit is the create-habit command input. Empty Frequency means Daily
// and empty Icon means zap.
type NewHabit struct {
	Title     string `json:"title" validate:"required,max=80"`
	Frequency string `json:"frequency"`
	Icon      string `json:"icon"`
}

type ToggleResult struct {
	Action streak.Action `json:"action"`
	Day    string        `json:"day"`
	Habit  models.Habit  `json:"habit"`
	// Skipped is set when the habit was deleted while the toggle was in flight.
	Skipped bool   `json:"skipped"`
	Toast   string `json:"toast,omitempty"`
}

// ToggleCompletion completes or undoes today's entry for a habit.
//
// Toggles on one habit are serialized: the lock is held until a published
// view reflects the write (or the settle timeout passes), so the next
// toggle always reads post-write state.
func (e *Engine) ToggleCompletion(ctx context.Context, habitID string) (ToggleResult, error) {
	return e.applyDay(ctx, "toggle", habitID, func(h models.Habit, day string, now time.Time) (streak.Result, error) {
		return streak.Toggle(h, day, now), nil
	})
}

// CompleteToday marks today done and fails if it already is.
func (e *Engine) CompleteToday(ctx context.Context, habitID string) (ToggleResult, error) {
	return e.applyDay(ctx, "complete", habitID, streak.MarkComplete)
}

// UndoToday removes today's completion and fails if there is none.
func (e *Engine) UndoToday(ctx context.Context, habitID string) (ToggleResult, error) {
	return e.applyDay(ctx, "undo", habitID, func(h models.Habit, day string, _ time.Time) (streak.Result, error) {
		return streak.MarkUndone(h, day)
	})
}

type dayDecision func(h models.Habit, day string, now time.Time) (streak.Result, error)

func (e *Engine) applyDay(ctx context.Context, op, habitID string, decide dayDecision) (res ToggleResult, err error) {
	start := time.Now()
	defer func() { metrics.RecordCommand(op, err) }()

	release, err := e.locker.Lock(ctx, habitID)
	if err != nil {
		return ToggleResult{}, fmt.Errorf("%s %s: %w", op, habitID, err)
	}
	defer release()

	h, ok := e.View().Habit(habitID)
	if !ok {
		return ToggleResult{}, errors.NotFound(op, "habit", habitID, nil)
	}

	now := e.clock.Now()
	day := utils.FormatDate(now)
	t, err := decide(h, day, now)
	if err != nil {
		return ToggleResult{}, errors.Invalid(op, "habit", err)
	}

	if err := e.store.MutateHabit(ctx, habitID, t.Patch); err != nil {
		if errors.IsNotFound(err) {
			logger.Debug("Habit deleted during toggle", "habit", habitID)
			return ToggleResult{Action: t.Action, Day: day, Skipped: true}, nil
		}
		if errors.KindOf(err) == errors.KindUnknown {
			err = errors.WriteRejected(op, "habit", habitID, err)
		}
		return ToggleResult{}, err
	}

	if t.Activity != nil {
		if _, err := e.store.AppendActivity(ctx, *t.Activity); err != nil {
			logger.Warn("Failed to record activity", "habit", habitID, "error", err)
		}
	}

	e.awaitSettled(ctx, habitID, t)

	evType := EventHabitDone
	if t.Action == streak.Undo {
		evType = EventHabitUndone
	}
	e.emit(Event{Type: evType, HabitID: habitID, Title: h.Title, Day: day, Streak: t.Habit.Streak, At: now})
	metrics.RecordToggle(t.Action.String(), time.Since(start))
	logger.Info("Updated today's completion", "op", op, "habit", habitID, "action", t.Action, "streak", t.Habit.Streak)

	res = ToggleResult{Action: t.Action, Day: day, Habit: t.Habit}
	if t.Action == streak.Complete {
		res.Toast = constants.CompletionToast
	}
	return res, nil
}

// awaitSettled waits until a view shows the toggle applied, the habit gone,
// or the settle timeout passes.
func (e *Engine) awaitSettled(ctx context.Context, habitID string, t streak.Result) {
	if e.settle <= 0 || !e.running.Load() {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, e.settle)
	defer cancel()

	settled := func(v *View) bool {
		h, ok := v.Habit(habitID)
		if !ok {
			return true
		}
		return h.HasCompleted(t.Day) == (t.Action == streak.Complete) && h.Streak == t.Habit.Streak
	}
	for v := range e.feed.Subscribe(wctx) {
		if settled(v) {
			return
		}
	}
	if wctx.Err() == context.DeadlineExceeded {
		logger.Warn("Toggle not observed before settle timeout", "habit", habitID, "timeout", e.settle)
	}
}

// CreateHabit validates input and adds a habit with an empty history.
func (e *Engine) CreateHabit(ctx context.Context, in NewHabit) (id string, err error) {
	defer func() { metrics.RecordCommand("create", err) }()

	in.Title = strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(in.Title)))
	if err := validate.Struct(in); err != nil {
		return "", errors.Invalid("create_habit", "habit", err)
	}
	freq, err := models.ParseFrequency(in.Frequency)
	if err != nil {
		return "", errors.Invalid("create_habit", "frequency", err)
	}
	icon := models.IconZap
	if strings.TrimSpace(in.Icon) != "" {
		if icon, err = models.ParseIcon(in.Icon); err != nil {
			return "", errors.Invalid("create_habit", "icon", err)
		}
	}

	id, err = e.store.AddHabit(ctx, models.Habit{
		Title:          in.Title,
		Frequency:      freq,
		Icon:           icon,
		CompletedDates: []string{},
	})
	if err != nil {
		return "", err
	}
	logger.Info("Created habit", "habit", id, "title", in.Title)
	e.emit(Event{Type: EventHabitCreated, HabitID: id, Title: in.Title, At: e.clock.Now()})
	return id, nil
}

// DeleteHabit removes a habit. Its activity history is kept.
func (e *Engine) DeleteHabit(ctx context.Context, habitID string) (err error) {
	defer func() { metrics.RecordCommand("delete", err) }()

	release, err := e.locker.Lock(ctx, habitID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", habitID, err)
	}
	defer release()

	h, _ := e.View().Habit(habitID)
	if err := e.store.DeleteHabit(ctx, habitID); err != nil {
		return err
	}
	logger.Info("Deleted habit", "habit", habitID)
	e.emit(Event{Type: EventHabitDeleted, HabitID: habitID, Title: h.Title, At: e.clock.Now()})
	return nil
}

// EnsureProfile creates the profile if none exists. It reports whether a
// profile was created.
func (e *Engine) EnsureProfile(ctx context.Context, displayName, email string) (created bool, err error) {
	defer func() { metrics.RecordCommand("ensure_profile", err) }()

	if e.View().Profile.Exists() {
		return false, nil
	}
	p := models.Profile{
		DisplayName: strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(displayName))),
		Email:       strings.TrimSpace(email),
	}
	if p.Email != "" {
		if err := validate.Var(p.Email, "email"); err != nil {
			return false, errors.Invalid("ensure_profile", "email", err)
		}
	}
	if err := e.store.SaveProfile(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}

// SyncBadges copies the live-unlocked badge ids into the profile's
// persisted history and returns the ids that were new.
func (e *Engine) SyncBadges(ctx context.Context) (added []string, err error) {
	defer func() { metrics.RecordCommand("sync_badges", err) }()

	v := e.View()
	have := make(map[string]bool, len(v.Profile.Badges))
	for _, id := range v.Profile.Badges {
		have[id] = true
	}
	for _, id := range badges.IDs(v.Unlocked) {
		if !have[id] {
			added = append(added, id)
		}
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := e.store.AddProfileBadges(ctx, added...); err != nil {
		return nil, err
	}
	return added, nil
}
