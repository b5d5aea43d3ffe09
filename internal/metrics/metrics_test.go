package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCommandOutcome(t *testing.T) {
	before := testutil.ToFloat64(CommandCount.WithLabelValues("toggle", "error"))
	RecordCommand("toggle", errors.New("boom"))
	RecordCommand("toggle", nil)
	if got := testutil.ToFloat64(CommandCount.WithLabelValues("toggle", "error")); got != before+1 {
		t.Errorf("error count = %v, want %v", got, before+1)
	}
}

func TestRecordDashboard(t *testing.T) {
	RecordDashboard(2, 50, 7)
	if got := testutil.ToFloat64(CompletionRate); got != 50 {
		t.Errorf("completion rate = %v, want 50", got)
	}
	if got := testutil.ToFloat64(BestStreak); got != 7 {
		t.Errorf("best streak = %v, want 7", got)
	}
}

func TestHistogramsAcceptObservations(t *testing.T) {
	RecordRecompute(time.Millisecond)
	RecordToggle("complete", 20*time.Millisecond)
	if n := testutil.CollectAndCount(ToggleDuration); n == 0 {
		t.Error("expected toggle histogram series")
	}
}
