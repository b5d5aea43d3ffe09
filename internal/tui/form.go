package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/engine"
	"github.com/julianstephens/restreak/internal/models"
)

// NewHabitForm builds the add-habit form. Picking a preset fills title and
// icon; an empty title after that is rejected by the engine.
func NewHabitForm(f *HabitFormModel) *huh.Form {
	presets := []huh.Option[string]{huh.NewOption("Custom", "")}
	for _, p := range models.Presets {
		presets = append(presets, huh.NewOption(fmt.Sprintf("%s %s", IconGlyph(p.Icon), p.Title), p.Key))
	}

	freqs := make([]huh.Option[models.Frequency], len(models.Frequencies))
	for i, fr := range models.Frequencies {
		freqs[i] = huh.NewOption(string(fr), fr)
	}

	icons := make([]huh.Option[models.Icon], len(models.Icons))
	for i, ic := range models.Icons {
		icons[i] = huh.NewOption(fmt.Sprintf("%s %s", IconGlyph(ic), ic), ic)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Quick add").
				Options(presets...).
				Value(&f.Preset),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description("Leave empty to use the preset").
				CharLimit(constants.MaxHabitTitleLength).
				Value(&f.Title),
			huh.NewSelect[models.Frequency]().
				Title("Frequency").
				Options(freqs...).
				Value(&f.Frequency),
			huh.NewSelect[models.Icon]().
				Title("Icon").
				Options(icons...).
				Value(&f.Icon),
		).WithHideFunc(func() bool { return f.Preset != "" }),
	).WithShowHelp(true)
}

// toNewHabit turns the submitted form into the create command input.
func (f *HabitFormModel) toNewHabit() engine.NewHabit {
	in := engine.NewHabit{
		Title:     strings.TrimSpace(f.Title),
		Frequency: string(f.Frequency),
		Icon:      string(f.Icon),
	}
	if p, ok := models.LookupPreset(f.Preset); ok {
		in.Title = p.Title
		in.Icon = string(p.Icon)
		in.Frequency = string(models.FrequencyDaily)
	}
	return in
}
