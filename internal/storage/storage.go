// Package storage defines the boundary between the habit engine and the
// document store it observes. Backends deliver full snapshots over
// channels and accept set-style patches; they never hold derived state.
package storage

import (
	"context"

	"github.com/julianstephens/restreak/internal/models"
)

// Provider is a subscription-capable habit store.
//
// Each Subscribe call delivers the current snapshot first and then one
// snapshot after every committed mutation. Delivery is latest-wins: a slow
// reader skips intermediate snapshots but always ends on the newest one.
// Channels close when ctx is cancelled or the provider is closed. Snapshot
// values are shared between subscribers and must be treated as read-only.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Subscriptions
	SubscribeHabits(ctx context.Context) (<-chan []models.Habit, error)
	SubscribeActivity(ctx context.Context, limit int) (<-chan []models.ActivityEvent, error)
	SubscribeProfile(ctx context.Context) (<-chan models.Profile, error)

	// Habits
	// AddHabit assigns the id and returns it. CompletedDates and Streak start empty.
	AddHabit(ctx context.Context, h models.Habit) (string, error)
	// MutateHabit applies p atomically. A missing habit yields a NotFound error.
	MutateHabit(ctx context.Context, id string, p Patch) error
	DeleteHabit(ctx context.Context, id string) error

	// Activity
	AppendActivity(ctx context.Context, e models.ActivityEvent) (string, error)

	// Profile
	// SaveProfile writes display name and email. The join date is assigned by
	// the backend on first save and never changed afterwards.
	SaveProfile(ctx context.Context, p models.Profile) error
	AddProfileBadges(ctx context.Context, ids ...string) error

	// Utils
	GetConfigPath() string
}
