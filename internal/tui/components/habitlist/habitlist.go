package habitlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/restreak/internal/engine"
	"github.com/julianstephens/restreak/internal/models"
)

type AddHabitMsg struct{}

type ToggleHabitMsg struct {
	ID string
}

type DeleteHabitMsg struct {
	ID    string
	Title string
}

// Glyph renders an icon for the terminal.
type Glyph func(models.Icon) string

type Item struct {
	Habit engine.HabitView
	glyph Glyph
}

func (i Item) Title() string {
	mark := "○"
	if i.Habit.DoneToday {
		mark = "✓"
	}
	return fmt.Sprintf("%s %s %s", mark, i.glyph(i.Habit.Icon), i.Habit.Title)
}

func (i Item) Description() string {
	desc := fmt.Sprintf("%d day streak | %s", i.Habit.Streak, i.Habit.Frequency)
	if i.Habit.DoneToday {
		desc += " | done today"
	}
	return desc
}

func (i Item) FilterValue() string { return i.Habit.Title }

type KeyMap struct {
	Add    key.Binding
	Toggle key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "toggle today"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list  list.Model
	keys  KeyMap
	glyph Glyph
}

func New(habits []engine.HabitView, glyph Glyph, width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Toggle, keys.Delete}
	}

	m := Model{list: l, keys: keys, glyph: glyph}
	m.SetHabits(habits)
	return m
}

// SetHabits replaces the items, keeping the cursor on the same habit when it still exists.
func (m *Model) SetHabits(habits []engine.HabitView) {
	selected := ""
	if i, ok := m.list.SelectedItem().(Item); ok {
		selected = i.Habit.ID
	}
	items := make([]list.Item, len(habits))
	cursor := 0
	for idx, h := range habits {
		items[idx] = Item{Habit: h, glyph: m.glyph}
		if h.ID == selected {
			cursor = idx
		}
	}
	m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(cursor)
	}
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

func (m Model) Len() int { return len(m.list.Items()) }

func (m Model) Selected() (engine.HabitView, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i.Habit, ok
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddHabitMsg{} }
		case key.Matches(msg, m.keys.Toggle):
			if h, ok := m.Selected(); ok {
				return m, func() tea.Msg { return ToggleHabitMsg{ID: h.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if h, ok := m.Selected(); ok {
				return m, func() tea.Msg { return DeleteHabitMsg{ID: h.ID, Title: h.Title} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "No habits yet. Press 'a' to add one."
	}
	return m.list.View()
}
