// Package metrics exposes engine and adapter instrumentation through the
// default prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// full view recomputation time
	ViewRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "restreak_view_recompute_seconds",
			Help:    "Time spent recomputing the derived view from a snapshot",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12), // 50us to ~100ms
		},
	)

	// snapshots received by source: habits, activity, profile, clock
	SnapshotCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restreak_snapshots_total",
			Help: "Total number of store snapshots applied by the engine",
		},
		[]string{"source"},
	)

	// commands by name and outcome
	CommandCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restreak_commands_total",
			Help: "Total number of engine commands by outcome",
		},
		[]string{"command", "outcome"},
	)

	// end-to-end toggle latency including the wait for the confirming snapshot
	ToggleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restreak_toggle_duration_seconds",
			Help:    "Toggle latency until the write is visible in the view",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"action"},
	)

	BadgeUnlockCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restreak_badge_unlocks_total",
			Help: "Badges newly unlocked by the live evaluation",
		},
		[]string{"badge"},
	)

	// current dashboard gauges
	HabitsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "restreak_habits",
		Help: "Number of habits in the latest snapshot",
	})
	CompletionRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "restreak_completion_rate_percent",
		Help: "Share of habits completed today",
	})
	BestStreak = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "restreak_best_streak",
		Help: "Largest streak across habits",
	})

	MentorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restreak_mentor_request_seconds",
			Help:    "Mentor API call latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restreak_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restreak_events_published_total",
			Help: "Domain events handed to external sinks",
		},
		[]string{"sink", "type", "status"},
	)
)

func RecordRecompute(duration time.Duration) {
	ViewRecomputeDuration.Observe(duration.Seconds())
}

func RecordSnapshot(source string) {
	SnapshotCount.WithLabelValues(source).Inc()
}

// RecordCommand counts a command; err == nil is "ok".
func RecordCommand(command string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CommandCount.WithLabelValues(command, outcome).Inc()
}

func RecordToggle(action string, duration time.Duration) {
	ToggleDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func RecordBadgeUnlock(badgeID string) {
	BadgeUnlockCount.WithLabelValues(badgeID).Inc()
}

// RecordDashboard updates the dashboard gauges.
func RecordDashboard(habits, completionRate, bestStreak int) {
	HabitsTotal.Set(float64(habits))
	CompletionRate.Set(float64(completionRate))
	BestStreak.Set(float64(bestStreak))
}

func RecordMentorRequest(status string, duration time.Duration) {
	MentorRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordEvent(sink, eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	EventsPublished.WithLabelValues(sink, eventType, status).Inc()
}
