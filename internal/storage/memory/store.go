// Package memory is an in-process storage.Provider. It backs tests and the
// "memory" backend, and mirrors the snapshot semantics of the durable stores.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	habits   map[string]models.Habit
	activity []models.ActivityEvent
	profile  models.Profile
	failNext error

	habitFeed    *storage.Feed[[]models.Habit]
	activityFeed *storage.Feed[[]models.ActivityEvent]
	profileFeed  *storage.Feed[models.Profile]
}

var _ storage.Provider = (*Store)(nil)

func NewStore() *Store {
	s := &Store{
		now:          time.Now,
		habits:       make(map[string]models.Habit),
		habitFeed:    storage.NewFeed[[]models.Habit](),
		activityFeed: storage.NewFeed[[]models.ActivityEvent](),
		profileFeed:  storage.NewFeed[models.Profile](),
	}
	s.publishAll()
	return s
}

// SetNow overrides the time source used for server-assigned timestamps.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNextWrite makes the next mutation fail with a WriteRejected error wrapping err.
func (s *Store) FailNextWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Seed inserts habits verbatim, keeping their ids, dates and streaks.
func (s *Store) Seed(habits ...models.Habit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range habits {
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		h = h.Clone()
		h.CompletedDates = models.NormalizeDates(h.CompletedDates)
		s.habits[h.ID] = h
	}
	s.publishHabits()
}

func (s *Store) Init() error { return nil }
func (s *Store) Load() error { return nil }
func (s *Store) Close() error {
	s.habitFeed.Close()
	s.activityFeed.Close()
	s.profileFeed.Close()
	return nil
}

func (s *Store) GetConfigPath() string { return ":memory:" }

func (s *Store) SubscribeHabits(ctx context.Context) (<-chan []models.Habit, error) {
	return s.habitFeed.Subscribe(ctx), nil
}

func (s *Store) SubscribeActivity(ctx context.Context, limit int) (<-chan []models.ActivityEvent, error) {
	return s.activityFeed.SubscribeFunc(ctx, storage.LimitActivity(limit)), nil
}

func (s *Store) SubscribeProfile(ctx context.Context) (<-chan models.Profile, error) {
	return s.profileFeed.Subscribe(ctx), nil
}

func (s *Store) AddHabit(ctx context.Context, h models.Habit) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("add_habit", "habit", ""); err != nil {
		return "", err
	}
	h.ID = uuid.NewString()
	h.CompletedDates = []string{}
	h.Streak = 0
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}
	s.habits[h.ID] = h
	s.publishHabits()
	return h.ID, nil
}

func (s *Store) MutateHabit(ctx context.Context, id string, p storage.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("mutate_habit", "habit", id); err != nil {
		return err
	}
	h, ok := s.habits[id]
	if !ok {
		return errors.NotFound("mutate_habit", "habit", id, nil)
	}
	next, err := p.Apply(h)
	if err != nil {
		return err
	}
	s.habits[id] = next
	s.publishHabits()
	return nil
}

func (s *Store) DeleteHabit(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("delete_habit", "habit", id); err != nil {
		return err
	}
	if _, ok := s.habits[id]; !ok {
		return errors.NotFound("delete_habit", "habit", id, nil)
	}
	delete(s.habits, id)
	s.publishHabits()
	return nil
}

func (s *Store) AppendActivity(ctx context.Context, e models.ActivityEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("append_activity", "activity", ""); err != nil {
		return "", err
	}
	e.ID = uuid.NewString()
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	s.activity = append(s.activity, e)
	s.publishActivity()
	return e.ID, nil
}

func (s *Store) SaveProfile(ctx context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("save_profile", "profile", ""); err != nil {
		return err
	}
	s.profile.DisplayName = p.DisplayName
	s.profile.Email = p.Email
	if s.profile.JoinDate == nil {
		joined := s.now()
		if p.JoinDate != nil {
			joined = *p.JoinDate
		}
		s.profile.JoinDate = &joined
	}
	s.publishProfile()
	return nil
}

func (s *Store) AddProfileBadges(ctx context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("add_profile_badges", "profile", ""); err != nil {
		return err
	}
	s.profile.Badges = models.MergeBadges(s.profile.Badges, ids...)
	s.publishProfile()
	return nil
}

func (s *Store) takeFailure(op, resource, id string) error {
	if s.failNext == nil {
		return nil
	}
	err := s.failNext
	s.failNext = nil
	return errors.WriteRejected(op, resource, id, err)
}

func (s *Store) publishAll() {
	s.publishHabits()
	s.publishActivity()
	s.publishProfile()
}

func (s *Store) publishHabits() {
	out := make([]models.Habit, 0, len(s.habits))
	for _, h := range s.habits {
		out = append(out, h.Clone())
	}
	models.SortByCreatedDesc(out)
	s.habitFeed.Publish(out)
}

func (s *Store) publishActivity() {
	out := append([]models.ActivityEvent(nil), s.activity...)
	storage.SortActivity(out)
	if len(out) > storage.ActivityWindow {
		out = out[:storage.ActivityWindow]
	}
	s.activityFeed.Publish(out)
}

func (s *Store) publishProfile() {
	p := s.profile
	p.Badges = append([]string{}, s.profile.Badges...)
	s.profileFeed.Publish(p)
}
