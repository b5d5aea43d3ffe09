package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/streak"
	"github.com/julianstephens/restreak/internal/tui/components/habitlist"
	"github.com/julianstephens/restreak/internal/utils"
)

const toastDuration = 3 * time.Second

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.habits.SetSize(msg.Width-4, max(msg.Height-14, 4))
		return m, nil

	case viewMsg:
		m.view = msg.view
		m.habits.SetHabits(msg.view.Habits)
		return m, waitForView(m.views)

	case toggledMsg:
		switch {
		case msg.err != nil:
			m.err = msg.err
		case msg.result.Skipped:
			m.toast = "Habit was deleted"
		case msg.result.Action == streak.Complete:
			m.toast = msg.result.Toast
		default:
			m.toast = fmt.Sprintf("Undid %s", msg.result.Habit.Title)
		}
		return m, clearToastAfter(toastDuration)

	case createdMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.toast = "Habit added"
		return m, clearToastAfter(toastDuration)

	case deletedMsg:
		if msg.err != nil && !errors.IsNotFound(msg.err) {
			m.err = msg.err
		}
		return m, nil

	case syncedMsg:
		switch {
		case msg.err != nil:
			m.err = msg.err
		case len(msg.added) == 0:
			m.toast = "Badges already up to date"
		default:
			m.toast = fmt.Sprintf("Saved %d badge(s)", len(msg.added))
		}
		return m, clearToastAfter(toastDuration)

	case mentorMsg:
		m.mentorText = msg.text
		return m, nil

	case clearToastMsg:
		m.toast = ""
		return m, nil
	}

	switch m.state {
	case constants.StateAddHabit:
		return m.updateForm(msg)
	case constants.StateConfirmDelete:
		return m.updateConfirmDelete(msg)
	case constants.StateMentor:
		if k, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(k, m.keys.Quit), key.Matches(k, m.keys.Cancel):
				m.state = constants.StateDashboard
			case key.Matches(k, m.keys.Mentor):
				m.mentorText = ""
				return m, m.askMentor()
			}
		}
		return m, nil
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		m.err = nil
		switch {
		case key.Matches(k, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(k, m.keys.Tab):
			m.state = (m.state + 1) % constants.SessionState(len(tabs))
			return m, nil
		case key.Matches(k, m.keys.ShiftTab):
			m.state = (m.state - 1 + constants.SessionState(len(tabs))) % constants.SessionState(len(tabs))
			return m, nil
		case key.Matches(k, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

		switch m.state {
		case constants.StateCalendar:
			switch {
			case key.Matches(k, m.keys.PrevMonth):
				m.calYear, m.calMonth = utils.ShiftMonth(m.calYear, m.calMonth, -1)
			case key.Matches(k, m.keys.NextMonth):
				m.calYear, m.calMonth = utils.ShiftMonth(m.calYear, m.calMonth, 1)
			}
			return m, nil
		case constants.StateDashboard:
			switch {
			case key.Matches(k, m.keys.Sync):
				return m, m.syncBadges()
			case key.Matches(k, m.keys.Mentor) && m.mentor != nil:
				m.state = constants.StateMentor
				m.mentorText = ""
				return m, m.askMentor()
			}
		}
	}

	if m.state != constants.StateDashboard {
		return m, nil
	}
	return m.updateHabits(msg)
}

func (m Model) updateHabits(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case habitlist.AddHabitMsg:
		m.habitForm = &HabitFormModel{Frequency: models.FrequencyDaily, Icon: models.IconZap}
		m.form = NewHabitForm(m.habitForm)
		m.state = constants.StateAddHabit
		return m, m.form.Init()
	case habitlist.ToggleHabitMsg:
		return m, m.toggle(msg.ID)
	case habitlist.DeleteHabitMsg:
		m.deleteID, m.deleteName = msg.ID, msg.Title
		m.state = constants.StateConfirmDelete
		return m, nil
	}

	var cmd tea.Cmd
	m.habits, cmd = m.habits.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
		m.state = constants.StateDashboard
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.state = constants.StateDashboard
		in := m.habitForm.toNewHabit()
		if strings.TrimSpace(in.Title) == "" {
			m.err = fmt.Errorf("title is required")
			return m, nil
		}
		return m, m.create(in)
	case huh.StateAborted:
		m.state = constants.StateDashboard
	}
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keys.Confirm):
		id := m.deleteID
		m.deleteID, m.deleteName = "", ""
		m.state = constants.StateDashboard
		return m, m.remove(id)
	case key.Matches(k, m.keys.Cancel):
		m.deleteID, m.deleteName = "", ""
		m.state = constants.StateDashboard
	}
	return m, nil
}
