// Package engine derives habit state from store snapshots. A single reducer
// goroutine owns the latest snapshots and republishes a freshly built View
// after every change; commands write through the store and never touch
// local state.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julianstephens/restreak/internal/badges"
	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/lock"
	"github.com/julianstephens/restreak/internal/logger"
	"github.com/julianstephens/restreak/internal/metrics"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/storage"
	"github.com/julianstephens/restreak/internal/utils"
)

type Engine struct {
	store  storage.Provider
	clock  utils.Clock
	locker lock.Locker
	settle time.Duration
	tick   time.Duration
	sinks  []EventSink

	view      atomic.Pointer[View]
	feed      *storage.Feed[*View]
	events    chan Event
	ready     chan struct{}
	readyOnce sync.Once
	running   atomic.Bool
}

type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(c utils.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocker replaces the in-process toggle lock.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithSettleTimeout bounds how long a toggle waits for its write to show up in a view.
func WithSettleTimeout(d time.Duration) Option {
	return func(e *Engine) { e.settle = d }
}

// WithTickInterval sets how often the reducer checks for a date change.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tick = d }
}

// WithEventSink registers an observer for domain events.
func WithEventSink(s EventSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, s) }
}

func New(store storage.Provider, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		clock:  utils.SystemClock{Location: time.Local},
		locker: lock.NewLocal(),
		settle: constants.DefaultSettleTimeout,
		tick:   constants.ClockTickInterval,
		feed:   storage.NewFeed[*View](),
		events: make(chan Event, 64),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.view.Store(Build(nil, nil, models.Profile{}, e.clock.Now(), 0))
	return e
}

// Run consumes store snapshots until ctx ends or every subscription closes.
// It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}
	defer e.feed.Close()

	habitsCh, err := e.store.SubscribeHabits(ctx)
	if err != nil {
		return err
	}
	activityCh, err := e.store.SubscribeActivity(ctx, storage.ActivityWindow)
	if err != nil {
		return err
	}
	profileCh, err := e.store.SubscribeProfile(ctx)
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		e.dispatch(stop)
	}()
	defer func() {
		close(stop)
		<-dispatched
	}()

	r := &reducer{engine: e}
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for habitsCh != nil || activityCh != nil || profileCh != nil {
		select {
		case <-ctx.Done():
			return nil
		case hs, ok := <-habitsCh:
			if !ok {
				habitsCh = nil
				continue
			}
			r.habits, r.have.habits = hs, true
			r.apply("habits")
		case as, ok := <-activityCh:
			if !ok {
				activityCh = nil
				continue
			}
			r.activity, r.have.activity = as, true
			r.apply("activity")
		case p, ok := <-profileCh:
			if !ok {
				profileCh = nil
				continue
			}
			r.profile, r.have.profile = p, true
			r.apply("profile")
		case <-ticker.C:
			if utils.Today(e.clock) != e.View().Today {
				r.apply("clock")
			}
		}
	}
	logger.Debug("Engine stopped: all store subscriptions closed")
	return nil
}

// WaitReady blocks until the first full snapshot triple has been applied.
func (e *Engine) WaitReady(ctx context.Context) error {
	select {
	case <-e.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns the latest published view. It is never nil.
func (e *Engine) View() *View {
	return e.view.Load()
}

// Subscribe delivers the current view and then every newer one, latest-wins.
func (e *Engine) Subscribe(ctx context.Context) <-chan *View {
	return e.feed.Subscribe(ctx)
}

func (e *Engine) Dashboard() Dashboard {
	return e.View().Dashboard()
}

func (e *Engine) Calendar(year int, month time.Month) Month {
	return e.View().Month(year, month)
}

func (e *Engine) Rewards() []badges.Status {
	return e.View().Rewards
}

func (e *Engine) Activity() []ActivityRow {
	return e.View().Activity
}

func (e *Engine) Profile() ProfileView {
	return e.View().ProfileView()
}

func (e *Engine) Store() storage.Provider {
	return e.store
}

type reducer struct {
	engine   *Engine
	habits   []models.Habit
	activity []models.ActivityEvent
	profile  models.Profile
	version  uint64
	have     struct{ habits, activity, profile bool }
}

func (r *reducer) apply(source string) {
	e := r.engine
	metrics.RecordSnapshot(source)
	if !(r.have.habits && r.have.activity && r.have.profile) {
		return
	}

	start := time.Now()
	r.version++
	prev := e.View()
	next := Build(r.habits, r.activity, r.profile, e.clock.Now(), r.version)
	metrics.RecordRecompute(time.Since(start))
	metrics.RecordDashboard(next.Metrics.TotalHabits, next.Metrics.CompletionRate, next.Metrics.BestStreak)

	e.view.Store(next)
	e.feed.Publish(next)

	first := false
	e.readyOnce.Do(func() {
		first = true
		close(e.ready)
	})
	if !first {
		for _, b := range newlyUnlocked(prev, next) {
			metrics.RecordBadgeUnlock(b.ID)
			logger.Info("Badge unlocked", "badge", b.ID, "name", b.Name)
			e.emit(Event{Type: EventBadgeUnlocked, BadgeID: b.ID, Title: b.Name, Streak: next.Metrics.BestStreak, At: next.Now})
		}
	}
}
