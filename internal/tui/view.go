package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/engine"
	"github.com/julianstephens/restreak/internal/tui/components/calendar"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateDashboard:
		content = m.viewDashboard()
	case constants.StateCalendar:
		content = m.viewCalendar()
	case constants.StateRewards:
		content = m.viewRewards()
	case constants.StateProfile:
		content = m.viewProfile()
	case constants.StateAddHabit:
		content = docStyle.Render(m.form.View())
	case constants.StateConfirmDelete:
		content = m.viewConfirmDelete()
	case constants.StateMentor:
		content = m.viewMentor()
	}

	var status string
	switch {
	case m.err != nil:
		status = dangerStyle.Render("Error: " + m.err.Error())
	case m.toast != "":
		status = toastStyle.Render(m.toast)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		status,
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var out []string
	for i, title := range tabs {
		if m.state == constants.SessionState(i) {
			out = append(out, activeTabStyle.Render(title))
		} else {
			out = append(out, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (m Model) viewStats(mt engine.Metrics) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		statStyle.Render(fmt.Sprintf("Today\n%d/%d done", mt.CompletedToday, mt.TotalHabits)),
		statStyle.Render(fmt.Sprintf("Completion\n%d%%", mt.CompletionRate)),
		statStyle.Render(fmt.Sprintf("Best streak\n%d days", mt.BestStreak)),
		statStyle.Render(fmt.Sprintf("Active\n%d streaks", mt.ActiveStreaks)),
	)
}

func (m Model) viewDashboard() string {
	d := m.view.Dashboard()
	name := d.Profile.DisplayName
	if name == "" {
		name = "there"
	}

	var recent []string
	for _, b := range d.RecentBadges {
		recent = append(recent, fmt.Sprintf("%s %s", IconGlyph(b.Icon), b.Name))
	}
	badgeLine := mutedStyle.Render("No badges yet")
	if len(recent) > 0 {
		badgeLine = "Recent badges: " + strings.Join(recent, "  ")
	}

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("Hi, %s!", name),
		m.viewStats(d.Metrics),
		badgeLine,
		"",
		m.habits.View(),
	))
}

func (m Model) viewCalendar() string {
	month := m.view.Month(m.calYear, m.calMonth)
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		calendar.Render(month),
		calendar.Legend(),
	))
}

func (m Model) viewRewards() string {
	var rows []string
	for _, s := range m.view.Rewards {
		line := fmt.Sprintf("%s %-16s %s", IconGlyph(s.Badge.Icon), s.Badge.Name, s.Badge.Description)
		if s.Unlocked {
			rows = append(rows, toastStyle.Render("★ ")+line)
		} else {
			rows = append(rows, lockedStyle.Render("🔒 "+line))
		}
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) viewProfile() string {
	p := m.view.ProfileView()
	name := p.Profile.DisplayName
	if name == "" {
		name = "Anonymous"
	}
	lines := []string{
		activeTabStyle.Render(p.Initial) + " " + name,
		mutedStyle.Render(p.Profile.Email),
		"",
		fmt.Sprintf("Days active: %d   Badges earned: %d   Total streak: %d",
			p.Metrics.DaysActive, p.Metrics.EarnedBadges, p.Metrics.TotalStreak),
		"",
		"Top achievements",
	}
	if len(p.TopAchievements) == 0 {
		lines = append(lines, mutedStyle.Render("  none yet"))
	}
	for _, b := range p.TopAchievements {
		lines = append(lines, fmt.Sprintf("  %s %s", IconGlyph(b.Icon), b.Name))
	}
	lines = append(lines, "", "Recent activity")
	if len(p.Activity) == 0 {
		lines = append(lines, mutedStyle.Render("  nothing yet"))
	}
	for _, a := range p.Activity {
		lines = append(lines, fmt.Sprintf("  %s %s", a.Text, mutedStyle.Render(a.Ago)))
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) viewConfirmDelete() string {
	return lipgloss.Place(m.width, max(m.height-4, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete %q?", m.deleteName)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}

func (m Model) viewMentor() string {
	text := m.mentorText
	if text == "" {
		text = mutedStyle.Render("Thinking...")
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		activeTabStyle.Render("Habit Mentor"),
		"",
		lipgloss.NewStyle().Width(max(m.width-8, 30)).Render(text),
		"",
		mutedStyle.Render("[m] new advice  [esc] close"),
	))
}
