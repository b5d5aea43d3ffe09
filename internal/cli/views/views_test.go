package views

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/restreak/internal/cli"
	"github.com/julianstephens/restreak/internal/config"
	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/engine"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/storage/memory"
)

func setupTestContext(t *testing.T, habits ...models.Habit) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	store := memory.NewStore()
	store.Seed(habits...)

	cfg := config.Default()
	cfg.Backend = constants.BackendMemory
	cfg.Notifications = false

	ctx := cli.NewContext(context.Background(), cfg, store)
	out := &bytes.Buffer{}
	ctx.Out = out
	t.Cleanup(ctx.Close)
	return ctx, out
}

func TestDashboard(t *testing.T) {
	ctx, out := setupTestContext(t,
		models.Habit{ID: "h1", Title: "Read", Streak: 3},
		models.Habit{ID: "h2", Title: "Run", Streak: 0},
	)
	if err := (&DashboardCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"Welcome back, friend", "Habits:          2 (0 done today, 0%)", "Best streak:     3", "Recent badges: First Step, Momentum", "[ ] Read (3)"} {
		if !strings.Contains(got, want) {
			t.Errorf("dashboard missing %q:\n%s", want, got)
		}
	}
}

func TestDashboardNoHabits(t *testing.T) {
	ctx, out := setupTestContext(t)
	if err := (&DashboardCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"Habits:          0 (0 done today, 0%)", "Best streak:     0", "No habits yet."} {
		if !strings.Contains(got, want) {
			t.Errorf("dashboard missing %q:\n%s", want, got)
		}
	}
	for _, unwanted := range []string{"Recent badges", "Today:"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("empty dashboard should not show %q:\n%s", unwanted, got)
		}
	}
}

func TestDashboardJSON(t *testing.T) {
	ctx, out := setupTestContext(t, models.Habit{ID: "h1", Title: "Read", Streak: 1})
	if err := (&DashboardCmd{Output{JSON: true}}).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var d engine.Dashboard
	if err := json.Unmarshal(out.Bytes(), &d); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}
	if d.Metrics.TotalHabits != 1 || len(d.Habits) != 1 {
		t.Errorf("dashboard = %+v", d)
	}
}

func TestCalendarMonth(t *testing.T) {
	ctx, out := setupTestContext(t, models.Habit{ID: "h1", CompletedDates: []string{"2024-02-10"}})

	cmd := &CalendarCmd{Month: "2024-02"}
	if err := cmd.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "February 2024") || !strings.Contains(out.String(), "29") {
		t.Errorf("calendar = %q", out.String())
	}

	out.Reset()
	cmd.JSON = true
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("JSON Run: %v", err)
	}
	var m engine.Month
	if err := json.Unmarshal(out.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(m.Cells) != 29 || m.Cells[9].Status != engine.AllDone {
		t.Errorf("cells = %d, day 10 = %v", len(m.Cells), m.Cells[9].Status)
	}
}

func TestCalendarValidate(t *testing.T) {
	for _, month := range []string{"2024-13", "Feb 2024", "2024-2-1"} {
		if err := (&CalendarCmd{Month: month}).Validate(); err == nil {
			t.Errorf("Validate(%q) succeeded", month)
		}
	}
}

func TestRewards(t *testing.T) {
	ctx, out := setupTestContext(t, models.Habit{ID: "h1", Title: "Read", Streak: 7})
	if err := (&RewardsCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d rewards, want 6", len(lines))
	}
	if !strings.HasPrefix(lines[3], "🏆 Consistent") {
		t.Errorf("7-day badge line = %q", lines[3])
	}
	if !strings.HasPrefix(lines[2], "🔒 Recovery Master") {
		t.Errorf("recovery badge line = %q", lines[2])
	}
}

func TestProfileWithoutProfile(t *testing.T) {
	ctx, out := setupTestContext(t)
	if err := (&ProfileCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "No profile yet") {
		t.Errorf("output = %q", out.String())
	}
}

func TestProfileAndActivity(t *testing.T) {
	ctx, out := setupTestContext(t, models.Habit{ID: "h1", Title: "Read"})
	eng, err := ctx.Engine()
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if _, err := eng.EnsureProfile(ctx.Ctx(), "Ada", "ada@example.com"); err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if _, err := eng.ToggleCompletion(ctx.Ctx(), "h1"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && (!eng.View().Profile.Exists() || len(eng.View().Activity) == 0) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := (&ProfileCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"(A) Ada", "ada@example.com", "joined", `Completed "Read"`} {
		if !strings.Contains(got, want) {
			t.Errorf("profile missing %q:\n%s", want, got)
		}
	}

	out.Reset()
	if err := (&ActivityCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), `Completed "Read"`) || !strings.Contains(out.String(), "just now") {
		t.Errorf("activity = %q", out.String())
	}
}
