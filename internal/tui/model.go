package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/engine"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/tui/components/habitlist"
)

// Mentor supplies coaching text; nil hides the mentor action.
type Mentor interface {
	Advise(ctx context.Context, displayName string, habits []models.Habit) (string, error)
}

type HabitFormModel struct {
	Preset    string
	Title     string
	Frequency models.Frequency
	Icon      models.Icon
}

var tabs = []string{"Dashboard", "Calendar", "Rewards", "Profile"}

type Model struct {
	ctx    context.Context
	engine *engine.Engine
	mentor Mentor
	views  <-chan *engine.View

	view       *engine.View
	state      constants.SessionState
	keys       KeyMap
	help       help.Model
	habits     habitlist.Model
	form       *huh.Form
	habitForm  *HabitFormModel
	calYear    int
	calMonth   time.Month
	deleteID   string
	deleteName string
	toast      string
	mentorText string
	err        error
	quitting   bool
	width      int
	height     int
}

func NewModel(ctx context.Context, eng *engine.Engine, mentor Mentor) Model {
	v := eng.View()
	return Model{
		ctx:      ctx,
		engine:   eng,
		mentor:   mentor,
		views:    eng.Subscribe(ctx),
		view:     v,
		state:    constants.StateDashboard,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		habits:   habitlist.New(v.Habits, IconGlyph, 0, 0),
		calYear:  v.Calendar.Year,
		calMonth: v.Calendar.Month,
	}
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case constants.StateDashboard:
		hk := habitlist.DefaultKeyMap()
		keys = append(keys, hk.Add, hk.Toggle, hk.Delete, m.keys.Sync)
		if m.mentor != nil {
			keys = append(keys, m.keys.Mentor)
		}
	case constants.StateCalendar:
		keys = append(keys, m.keys.PrevMonth, m.keys.NextMonth)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{m.ShortHelp(), {m.keys.ShiftTab, m.keys.Up, m.keys.Down}}
}

func (m Model) Init() tea.Cmd {
	return waitForView(m.views)
}

type viewMsg struct{ view *engine.View }

type toggledMsg struct {
	result engine.ToggleResult
	err    error
}

type createdMsg struct{ err error }

type deletedMsg struct{ err error }

type syncedMsg struct {
	added []string
	err   error
}

type mentorMsg struct{ text string }

type clearToastMsg struct{}

func waitForView(views <-chan *engine.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return nil
		}
		return viewMsg{view: v}
	}
}

func (m Model) toggle(id string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.engine.ToggleCompletion(m.ctx, id)
		return toggledMsg{result: res, err: err}
	}
}

func (m Model) create(in engine.NewHabit) tea.Cmd {
	return func() tea.Msg {
		_, err := m.engine.CreateHabit(m.ctx, in)
		return createdMsg{err: err}
	}
}

func (m Model) remove(id string) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{err: m.engine.DeleteHabit(m.ctx, id)}
	}
}

func (m Model) syncBadges() tea.Cmd {
	return func() tea.Msg {
		added, err := m.engine.SyncBadges(m.ctx)
		return syncedMsg{added: added, err: err}
	}
}

func (m Model) askMentor() tea.Cmd {
	v := m.view
	return func() tea.Msg {
		text, _ := m.mentor.Advise(m.ctx, v.Profile.DisplayName, v.RawHabits())
		return mentorMsg{text: text}
	}
}

func clearToastAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearToastMsg{} })
}
