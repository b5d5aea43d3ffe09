package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/restreak/internal/engine"
	"github.com/julianstephens/restreak/internal/models"
)

func TestRenderLayout(t *testing.T) {
	habits := []models.Habit{{ID: "h1", CompletedDates: []string{"2024-05-01"}}}
	m := engine.ProjectMonth(habits, 2024, time.May, "2024-05-10")

	out := Render(m)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if !strings.Contains(lines[0], "May 2024") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Mo") || !strings.Contains(lines[1], "Su") {
		t.Errorf("weekday row = %q", lines[1])
	}
	// 2 leading blanks + 31 days = 33 cells = 5 rows of days.
	if got := len(lines) - 2; got != 5 {
		t.Errorf("day rows = %d, want 5", got)
	}
	if !strings.Contains(lines[len(lines)-1], "31") {
		t.Errorf("last row = %q", lines[len(lines)-1])
	}
}

func TestLegend(t *testing.T) {
	l := Legend()
	for _, want := range []string{"all done", "partial", "missed"} {
		if !strings.Contains(l, want) {
			t.Errorf("legend missing %q", want)
		}
	}
}
