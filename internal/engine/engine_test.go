package engine

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/storage"
	"github.com/julianstephens/restreak/internal/storage/memory"
	"github.com/julianstephens/restreak/internal/streak"
)

var testNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) ofType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	engine *Engine
	store  *memory.Store
	clock  *testClock
	sink   *recordingSink
}

func setupTestEngine(t *testing.T, store storage.Provider, habits ...models.Habit) *harness {
	t.Helper()
	mem, _ := store.(*memory.Store)
	if store == nil {
		mem = memory.NewStore()
		store = mem
	}
	if mem != nil {
		mem.SetNow(func() time.Time { return testNow })
		mem.Seed(habits...)
	}

	clock := &testClock{t: testNow}
	sink := &recordingSink{}
	e := New(store,
		WithClock(clock),
		WithSettleTimeout(time.Second),
		WithTickInterval(10*time.Millisecond),
		WithEventSink(sink),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	readyCtx, readyCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readyCancel()
	if err := e.WaitReady(readyCtx); err != nil {
		t.Fatalf("engine never became ready: %v", err)
	}
	return &harness{engine: e, store: mem, clock: clock, sink: sink}
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", what)
}

func TestNoHabits(t *testing.T) {
	h := setupTestEngine(t, nil)
	d := h.engine.Dashboard()

	if d.Metrics.TotalHabits != 0 || d.Metrics.CompletionRate != 0 || d.Metrics.BestStreak != 0 || d.Metrics.ActiveStreaks != 0 {
		t.Errorf("unexpected metrics %+v", d.Metrics)
	}
	if len(d.RecentBadges) != 0 {
		t.Errorf("recent badges = %+v, want none", d.RecentBadges)
	}
	for _, c := range d.Calendar.Cells {
		if c.Status == AllDone {
			t.Fatalf("AllDone on %s with no habits", c.Date)
		}
	}
}

func TestFirstCompletionUnlocksFirstStep(t *testing.T) {
	h := setupTestEngine(t, nil, models.Habit{ID: "read", Title: "Read", CreatedAt: testNow.Add(-time.Hour)})

	res, err := h.engine.ToggleCompletion(context.Background(), "read")
	if err != nil {
		t.Fatalf("ToggleCompletion failed: %v", err)
	}
	if res.Action != streak.Complete || res.Toast != constants.CompletionToast {
		t.Errorf("unexpected result %+v", res)
	}

	v := h.engine.View()
	hv := v.Habits[0]
	if hv.Streak != 1 || !hv.DoneToday {
		t.Errorf("habit after toggle = %+v", hv)
	}
	recent := v.Dashboard().RecentBadges
	if len(recent) != 1 || recent[0].Name != "First Step" {
		t.Errorf("recent badges = %+v", recent)
	}

	eventually(t, "activity recorded", func() bool {
		a := h.engine.Activity()
		return len(a) == 1 && a[0].Text == `Completed "Read"` && a[0].Type == models.ActivityCompletion
	})
	eventually(t, "badge event", func() bool {
		evs := h.sink.ofType(EventBadgeUnlocked)
		return len(evs) == 1 && evs[0].BadgeID == "first_habit"
	})
}

func TestShutdownFlushesQueuedEvents(t *testing.T) {
	mem := memory.NewStore()
	mem.SetNow(func() time.Time { return testNow })
	mem.Seed(models.Habit{ID: "read", Title: "Read", CreatedAt: testNow.Add(-time.Hour)})

	sink := &recordingSink{}
	e := New(mem, WithClock(&testClock{t: testNow}), WithSettleTimeout(time.Second), WithEventSink(sink))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	if err := e.WaitReady(ctx); err != nil {
		t.Fatalf("engine never became ready: %v", err)
	}

	if _, err := e.ToggleCompletion(context.Background(), "read"); err != nil {
		t.Fatalf("ToggleCompletion failed: %v", err)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	evs := sink.ofType(EventHabitDone)
	if len(evs) != 1 || evs[0].HabitID != "read" || evs[0].Streak != 1 {
		t.Fatalf("completion events after shutdown = %+v, want one for read", evs)
	}
}

func TestGuardedCompleteAndUndo(t *testing.T) {
	h := setupTestEngine(t, nil, models.Habit{ID: "read", Title: "Read", Streak: 4, CreatedAt: testNow.Add(-time.Hour)})
	ctx := context.Background()

	if _, err := h.engine.UndoToday(ctx, "read"); !stderrors.Is(err, streak.ErrNothingToUndo) || !errors.IsInvalidInput(err) {
		t.Fatalf("UndoToday on open day: got %v", err)
	}
	res, err := h.engine.CompleteToday(ctx, "read")
	if err != nil || res.Action != streak.Complete || res.Habit.Streak != 5 {
		t.Fatalf("CompleteToday = %+v, %v", res, err)
	}
	if _, err := h.engine.CompleteToday(ctx, "read"); !stderrors.Is(err, streak.ErrAlreadyCompleted) {
		t.Fatalf("second CompleteToday: got %v", err)
	}
	res, err = h.engine.UndoToday(ctx, "read")
	if err != nil || res.Action != streak.Undo || res.Habit.Streak != 4 {
		t.Fatalf("UndoToday = %+v, %v", res, err)
	}
	eventually(t, "undo event", func() bool { return len(h.sink.ofType(EventHabitUndone)) == 1 })
}

func TestUndoFromThree(t *testing.T) {
	h := setupTestEngine(t, nil, models.Habit{
		ID:             "run",
		Title:          "Run",
		CompletedDates: []string{"2024-05-08", "2024-05-09", "2024-05-10"},
		Streak:         3,
	})

	res, err := h.engine.ToggleCompletion(context.Background(), "run")
	if err != nil {
		t.Fatalf("ToggleCompletion failed: %v", err)
	}
	if res.Action != streak.Undo || res.Toast != "" {
		t.Errorf("unexpected result %+v", res)
	}
	got, _ := h.engine.View().Habit("run")
	if got.Streak != 2 || got.HasCompleted("2024-05-10") {
		t.Errorf("habit after undo = %+v", got)
	}
	if len(h.engine.Activity()) != 0 {
		t.Errorf("undo recorded activity: %+v", h.engine.Activity())
	}
}

func TestTwoHabitsPartial(t *testing.T) {
	h := setupTestEngine(t, nil,
		models.Habit{ID: "a", Title: "A", CompletedDates: []string{"2024-05-10"}, Streak: 1},
		models.Habit{ID: "b", Title: "B"},
	)
	v := h.engine.View()
	if v.Metrics.CompletionRate != 50 {
		t.Errorf("completion rate = %d, want 50", v.Metrics.CompletionRate)
	}
	if got := h.engine.Calendar(2024, time.May).Cells[9].Status; got != Partial {
		t.Errorf("today status = %v, want Partial", got)
	}
}

func TestConcurrentTogglesSerialize(t *testing.T) {
	h := setupTestEngine(t, nil, models.Habit{ID: "x", Title: "X", CompletedDates: []string{"2024-05-09"}, Streak: 1})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.engine.ToggleCompletion(context.Background(), "x"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, _ := h.engine.View().Habit("x")
	if got.Streak != 1 || got.HasCompleted("2024-05-10") {
		t.Errorf("after 10 toggles habit = %+v, want original state", got)
	}
	if n := len(h.sink.ofType(EventHabitDone)); n > 5 {
		t.Errorf("completed events = %d, want at most 5", n)
	}
}

func TestToggleUnknownHabit(t *testing.T) {
	h := setupTestEngine(t, nil)
	_, err := h.engine.ToggleCompletion(context.Background(), "ghost")
	if !errors.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

type vanishingStore struct {
	*memory.Store
}

func (s vanishingStore) MutateHabit(ctx context.Context, id string, p storage.Patch) error {
	return errors.NotFound("mutate_habit", "habit", id, nil)
}

func TestToggleOnDeletedHabitIsSkipped(t *testing.T) {
	mem := memory.NewStore()
	mem.Seed(models.Habit{ID: "gone", Title: "Gone"})
	h := setupTestEngine(t, vanishingStore{mem})

	res, err := h.engine.ToggleCompletion(context.Background(), "gone")
	if err != nil {
		t.Fatalf("expected swallowed NotFound, got %v", err)
	}
	if !res.Skipped {
		t.Errorf("expected Skipped result, got %+v", res)
	}
}

func TestToggleWriteRejected(t *testing.T) {
	h := setupTestEngine(t, nil, models.Habit{ID: "a", Title: "A"})
	before := h.engine.View()

	h.store.FailNextWrite(stderrors.New("permission denied"))
	_, err := h.engine.ToggleCompletion(context.Background(), "a")
	if !errors.IsWriteRejected(err) {
		t.Fatalf("expected WriteRejected, got %v", err)
	}
	if h.engine.View() != before {
		t.Error("failed write changed the view")
	}
}

func TestCreateHabit(t *testing.T) {
	h := setupTestEngine(t, nil)
	ctx := context.Background()

	id, err := h.engine.CreateHabit(ctx, NewHabit{Title: "  <b>Drink Water</b> ", Frequency: "weekly", Icon: "BookOpen"})
	if err != nil {
		t.Fatalf("CreateHabit failed: %v", err)
	}
	eventually(t, "habit visible", func() bool {
		_, ok := h.engine.View().Habit(id)
		return ok
	})
	got, _ := h.engine.View().Habit(id)
	if got.Title != "Drink Water" || got.Frequency != models.FrequencyWeekly || got.Icon != models.IconBookOpen || got.Streak != 0 {
		t.Errorf("created habit = %+v", got)
	}

	id, err = h.engine.CreateHabit(ctx, NewHabit{Title: "Tom & Jerry"})
	if err != nil {
		t.Fatal(err)
	}
	eventually(t, "second habit visible", func() bool {
		got, ok := h.engine.View().Habit(id)
		return ok && got.Title == "Tom & Jerry" && got.Icon == models.IconZap && got.Frequency == models.FrequencyDaily
	})
}

func TestCreateHabitRejectsInvalidInput(t *testing.T) {
	h := setupTestEngine(t, nil)
	bad := []NewHabit{
		{Title: ""},
		{Title: "<script></script>"},
		{Title: strings.Repeat("a", 81)},
		{Title: "ok", Frequency: "hourly"},
		{Title: "ok", Icon: "rocket"},
	}
	for i, in := range bad {
		if _, err := h.engine.CreateHabit(context.Background(), in); !errors.IsInvalidInput(err) {
			t.Errorf("input %d: expected InvalidInput, got %v", i, err)
		}
	}
}

func TestDeleteHabit(t *testing.T) {
	h := setupTestEngine(t, nil, models.Habit{ID: "a", Title: "A"})
	ctx := context.Background()

	if err := h.engine.DeleteHabit(ctx, "a"); err != nil {
		t.Fatalf("DeleteHabit failed: %v", err)
	}
	eventually(t, "habit gone", func() bool {
		_, ok := h.engine.View().Habit("a")
		return !ok
	})
	if err := h.engine.DeleteHabit(ctx, "a"); !errors.IsNotFound(err) {
		t.Errorf("second delete: expected NotFound, got %v", err)
	}
}

func TestEnsureProfileAndSyncBadges(t *testing.T) {
	h := setupTestEngine(t, nil, models.Habit{ID: "a", Title: "A", Streak: 3})
	ctx := context.Background()

	created, err := h.engine.EnsureProfile(ctx, "Ada", "ada@example.com")
	if err != nil || !created {
		t.Fatalf("EnsureProfile = %v, %v", created, err)
	}
	eventually(t, "profile visible", func() bool { return h.engine.View().Profile.Exists() })

	created, err = h.engine.EnsureProfile(ctx, "Someone Else", "")
	if err != nil || created {
		t.Errorf("second EnsureProfile = %v, %v; want false, nil", created, err)
	}

	added, err := h.engine.SyncBadges(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 2 {
		t.Errorf("added = %v, want first_habit and 3_day_streak", added)
	}
	eventually(t, "badges persisted", func() bool { return h.engine.View().Metrics.EarnedBadges == 2 })

	added, err = h.engine.SyncBadges(ctx)
	if err != nil || len(added) != 0 {
		t.Errorf("resync = %v, %v", added, err)
	}

	p := h.engine.Profile()
	if p.Initial != "A" || p.Metrics.DaysActive != 1 || len(p.TopAchievements) != 2 {
		t.Errorf("profile view = %+v", p)
	}
}

func TestEnsureProfileRejectsBadEmail(t *testing.T) {
	h := setupTestEngine(t, nil)
	if _, err := h.engine.EnsureProfile(context.Background(), "Ada", "not-an-email"); !errors.IsInvalidInput(err) {
		t.Errorf("expected InvalidInput, got %v", err)
	}
}

func TestDateRolloverRecomputes(t *testing.T) {
	h := setupTestEngine(t, nil, models.Habit{ID: "a", Title: "A", CompletedDates: []string{"2024-05-10"}, Streak: 1})
	if !h.engine.View().Habits[0].DoneToday {
		t.Fatal("habit should be done today")
	}

	h.clock.Advance(24 * time.Hour)
	eventually(t, "view moved to the next day", func() bool {
		v := h.engine.View()
		return v.Today == "2024-05-11" && !v.Habits[0].DoneToday
	})
}

func TestSubscribeDeliversViews(t *testing.T) {
	h := setupTestEngine(t, nil, models.Habit{ID: "a", Title: "A"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.engine.Subscribe(ctx)
	first := <-ch
	if first.Version == 0 {
		t.Error("subscriber got the placeholder view")
	}

	if _, err := h.engine.ToggleCompletion(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	timeout := time.After(time.Second)
	for {
		select {
		case v := <-ch:
			if v.Version > first.Version && v.Metrics.CompletedToday == 1 {
				return
			}
		case <-timeout:
			t.Fatal("no view reflecting the toggle")
		}
	}
}
