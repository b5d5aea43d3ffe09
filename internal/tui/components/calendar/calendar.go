// Package calendar renders a month grid with one colored cell per day.
package calendar

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/restreak/internal/engine"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	weekdayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	todayStyle   = lipgloss.NewStyle().Underline(true).Bold(true)

	statusStyles = map[engine.DayStatus]lipgloss.Style{
		engine.Future:  lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		engine.Pending: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		engine.Missed:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		engine.Partial: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		engine.AllDone: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
)

const cellWidth = 4

// Render draws the month Monday-first, seven cells per row.
func Render(m engine.Month) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.Label()))
	b.WriteString("\n")
	for _, d := range []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"} {
		b.WriteString(weekdayStyle.Render(pad(d)))
	}
	b.WriteString("\n")

	col := 0
	for i := 0; i < m.LeadingBlanks; i++ {
		b.WriteString(pad(""))
		col++
	}
	for _, c := range m.Cells {
		style := statusStyles[c.Status]
		if c.IsToday {
			style = style.Inherit(todayStyle)
		}
		b.WriteString(style.Render(pad(fmt.Sprintf("%d", c.Day))))
		col++
		if col == 7 {
			b.WriteString("\n")
			col = 0
		}
	}
	if col != 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// Legend explains the cell colors.
func Legend() string {
	parts := []string{
		statusStyles[engine.AllDone].Render("all done"),
		statusStyles[engine.Partial].Render("partial"),
		statusStyles[engine.Missed].Render("missed"),
		statusStyles[engine.Pending].Render("today"),
	}
	return strings.Join(parts, "  ")
}

func pad(s string) string {
	return fmt.Sprintf("%*s", cellWidth-1, s) + " "
}
