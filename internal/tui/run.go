package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/restreak/internal/engine"
)

// Run shows the interactive dashboard until the user quits or ctx ends.
func Run(ctx context.Context, eng *engine.Engine, mentor Mentor) error {
	p := tea.NewProgram(NewModel(ctx, eng, mentor), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
