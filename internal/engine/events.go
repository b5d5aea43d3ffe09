package engine

import (
	"context"
	"time"

	"github.com/julianstephens/restreak/internal/badges"
	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/logger"
	"github.com/julianstephens/restreak/internal/metrics"
)

type EventType string

const (
	EventHabitCreated  EventType = "habit.created"
	EventHabitDeleted  EventType = "habit.deleted"
	EventHabitDone     EventType = "habit.completed"
	EventHabitUndone   EventType = "habit.undone"
	EventBadgeUnlocked EventType = "badge.unlocked"
)

// Event is a domain fact published after the corresponding write committed.
type Event struct {
	Type    EventType `json:"type"`
	HabitID string    `json:"habitId,omitempty"`
	Title   string    `json:"title,omitempty"`
	Day     string    `json:"day,omitempty"`
	BadgeID string    `json:"badgeId,omitempty"`
	Streak  int       `json:"streak"`
	At      time.Time `json:"at"`
}

// EventSink receives domain events off the reducer goroutine. Failures are
// logged and counted; they never fail the command that produced the event.
type EventSink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, ev Event) error

func (f EventSinkFunc) Name() string { return "func" }

func (f EventSinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

func (e *Engine) emit(ev Event) {
	if len(e.sinks) == 0 {
		return
	}
	select {
	case e.events <- ev:
	default:
		logger.Warn("Dropping domain event, sink queue full", "type", ev.Type)
	}
}

// dispatch delivers queued events until stop closes, then flushes whatever
// is still queued so one-shot commands do not lose their events on exit.
func (e *Engine) dispatch(stop <-chan struct{}) {
	for {
		select {
		case ev := <-e.events:
			ctx, cancel := context.WithTimeout(context.Background(), constants.EventSinkTimeout)
			e.deliver(ctx, ev)
			cancel()
		case <-stop:
			e.drain()
			return
		}
	}
}

func (e *Engine) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.EventSinkTimeout)
	defer cancel()
	for {
		select {
		case ev := <-e.events:
			e.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (e *Engine) deliver(ctx context.Context, ev Event) {
	for _, s := range e.sinks {
		err := s.Publish(ctx, ev)
		metrics.RecordEvent(s.Name(), string(ev.Type), err)
		if err != nil {
			logger.Warn("Event sink failed", "sink", s.Name(), "type", ev.Type, "error", err)
		}
	}
}

func newlyUnlocked(prev, next *View) []badges.Badge {
	had := make(map[string]bool, len(prev.Unlocked))
	for _, b := range prev.Unlocked {
		had[b.ID] = true
	}
	var out []badges.Badge
	for _, b := range next.Unlocked {
		if !had[b.ID] {
			out = append(out, b)
		}
	}
	return out
}
