package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/restreak/internal/models"
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Bold(true)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 1)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	toastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	statStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(16)

	lockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	docStyle = lipgloss.NewStyle().Padding(1, 2)
)

var iconGlyphs = map[models.Icon]string{
	models.IconZap:      "⚡",
	models.IconFlame:    "🔥",
	models.IconActivity: "🏃",
	models.IconCalendar: "📅",
	models.IconBookOpen: "📖",
	models.IconCheck:    "✔",
}

// IconGlyph maps an icon to its terminal glyph; unknown icons show as a flame.
func IconGlyph(icon models.Icon) string {
	if g, ok := iconGlyphs[icon]; ok {
		return g
	}
	return iconGlyphs[models.IconFlame]
}
