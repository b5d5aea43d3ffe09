// Package badges holds the static achievement catalog and evaluates it
// against a streak value. Evaluation is pure and never fails: a value that
// matches nothing simply leaves every badge locked.
package badges

import (
	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/models"
)

type ConditionKind int

const (
	// Threshold unlocks once the streak reaches Min.
	Threshold ConditionKind = iota
	// NeverUnlockable is a placeholder badge that stays locked for every input.
	NeverUnlockable
)

// Condition is the unlock rule of a badge, modelled as data.
type Condition struct {
	Kind ConditionKind `json:"kind"`
	Min  int           `json:"min,omitempty"`
}

// AtLeast builds a threshold condition.
func AtLeast(n int) Condition { return Condition{Kind: Threshold, Min: n} }

// Never builds a permanently locked condition.
func Never() Condition { return Condition{Kind: NeverUnlockable} }

// Met reports whether streak satisfies the condition.
func (c Condition) Met(streak int) bool {
	switch c.Kind {
	case Threshold:
		return streak >= c.Min
	default:
		return false
	}
}

type Badge struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        models.Icon `json:"icon"`
	Condition   Condition   `json:"condition"`
}

// Status pairs a badge with its lock state for the rewards view.
type Status struct {
	Badge    Badge `json:"badge"`
	Unlocked bool  `json:"unlocked"`
}

var catalog = []Badge{
	{ID: "first_habit", Name: "First Step", Description: "Created your first habit", Icon: models.IconZap, Condition: AtLeast(1)},
	{ID: "3_day_streak", Name: "Momentum", Description: "Reached a 3-day streak", Icon: models.IconFlame, Condition: AtLeast(3)},
	{ID: "recovery_master", Name: "Recovery Master", Description: "Came back after a missed day", Icon: models.IconActivity, Condition: Never()},
	{ID: "7_day_consistency", Name: "Consistent", Description: "7 days of activity", Icon: models.IconCalendar, Condition: AtLeast(7)},
	{ID: "habit_scholar", Name: "Scholar", Description: "Completed 10 study sessions", Icon: models.IconBookOpen, Condition: AtLeast(10)},
	{ID: "early_riser", Name: "Early Riser", Description: "Completed a habit before 8am", Icon: models.IconCheck, Condition: Never()},
}

// Catalog returns a copy of the ordered badge catalog.
func Catalog() []Badge {
	return append([]Badge(nil), catalog...)
}

// Lookup finds a badge by id.
func Lookup(id string) (Badge, bool) {
	for _, b := range catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// Unlocked filters the catalog by each condition, preserving catalog order.
func Unlocked(streak int) []Badge {
	out := []Badge{}
	for _, b := range catalog {
		if b.Condition.Met(streak) {
			out = append(out, b)
		}
	}
	return out
}

// Recent is the dashboard sub-view: the first two unlocked badges.
func Recent(streak int) []Badge {
	return firstN(Unlocked(streak), constants.RecentBadgeCount)
}

// Top is the profile sub-view: the first three unlocked badges.
func Top(streak int) []Badge {
	return firstN(Unlocked(streak), constants.TopAchievementCount)
}

// Evaluate returns every catalog badge with its lock state.
func Evaluate(streak int) []Status {
	out := make([]Status, len(catalog))
	for i, b := range catalog {
		out[i] = Status{Badge: b, Unlocked: b.Condition.Met(streak)}
	}
	return out
}

// IDs extracts badge ids in order.
func IDs(bs []Badge) []string {
	ids := make([]string, len(bs))
	for i, b := range bs {
		ids[i] = b.ID
	}
	return ids
}

func firstN(bs []Badge, n int) []Badge {
	if len(bs) > n {
		return bs[:n]
	}
	return bs
}
