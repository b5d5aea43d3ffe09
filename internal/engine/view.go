package engine

import (
	"time"

	"github.com/julianstephens/restreak/internal/badges"
	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/utils"
)

// HabitView is a habit as the dashboard lists it.
type HabitView struct {
	models.Habit
	DoneToday bool `json:"doneToday"`
}

type Dashboard struct {
	Profile      models.Profile `json:"profile"`
	Habits       []HabitView    `json:"habits"`
	Metrics      Metrics        `json:"metrics"`
	RecentBadges []badges.Badge `json:"recentBadges"`
	Calendar     Month          `json:"calendar"`
}

type ProfileView struct {
	Profile         models.Profile `json:"profile"`
	Initial         string         `json:"initial"`
	Metrics         Metrics        `json:"metrics"`
	TopAchievements []badges.Badge `json:"topAchievements"`
	Activity        []ActivityRow  `json:"activity"`
}

// View is one consistent derivation of a habits/activity/profile snapshot
// triple. It is never mutated after publication.
type View struct {
	Version uint64    `json:"version"`
	Now     time.Time `json:"now"`
	Today   string    `json:"today"`

	Habits   []HabitView     `json:"habits"`
	Profile  models.Profile  `json:"profile"`
	Metrics  Metrics         `json:"metrics"`
	Unlocked []badges.Badge  `json:"unlocked"`
	Rewards  []badges.Status `json:"rewards"`
	Activity []ActivityRow   `json:"activity"`
	Calendar Month           `json:"calendar"`

	raw []models.Habit
}

// Build derives a View from scratch. Nothing from a previous view is reused.
func Build(habits []models.Habit, activity []models.ActivityEvent, profile models.Profile, now time.Time, version uint64) *View {
	today := utils.FormatDate(now)

	raw := make([]models.Habit, len(habits))
	for i, h := range habits {
		raw[i] = h.Clone()
	}
	models.SortByCreatedDesc(raw)

	hv := make([]HabitView, len(raw))
	for i, h := range raw {
		hv[i] = HabitView{Habit: h, DoneToday: h.HasCompleted(today)}
	}

	m := ComputeMetrics(raw, profile, today, now)
	return &View{
		Version:  version,
		Now:      now,
		Today:    today,
		Habits:   hv,
		Profile:  profile,
		Metrics:  m,
		Unlocked: badges.Unlocked(m.BestStreak),
		Rewards:  badges.Evaluate(m.BestStreak),
		Activity: RecentActivity(activity, constants.RecentActivityLimit, now),
		Calendar: ProjectMonth(raw, now.Year(), now.Month(), today),
		raw:      raw,
	}
}

// Habit looks up a habit by id in this view.
func (v *View) Habit(id string) (models.Habit, bool) {
	for _, h := range v.raw {
		if h.ID == id {
			return h, true
		}
	}
	return models.Habit{}, false
}

// RawHabits is the sorted habit list without display fields.
func (v *View) RawHabits() []models.Habit {
	return v.raw
}

func (v *View) Dashboard() Dashboard {
	return Dashboard{
		Profile:      v.Profile,
		Habits:       v.Habits,
		Metrics:      v.Metrics,
		RecentBadges: badges.Recent(v.Metrics.BestStreak),
		Calendar:     v.Calendar,
	}
}

func (v *View) ProfileView() ProfileView {
	return ProfileView{
		Profile:         v.Profile,
		Initial:         v.Profile.Initial(),
		Metrics:         v.Metrics,
		TopAchievements: badges.Top(v.Metrics.BestStreak),
		Activity:        v.Activity,
	}
}

// Month projects any month against this view's habits and today.
func (v *View) Month(year int, month time.Month) Month {
	if year == v.Calendar.Year && month == v.Calendar.Month {
		return v.Calendar
	}
	return ProjectMonth(v.raw, year, month, v.Today)
}
