package habits

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/restreak/internal/cli"
	"github.com/julianstephens/restreak/internal/engine"
	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/streak"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits with today's status."`
	Toggle HabitToggleCmd `cmd:"" help:"Mark a habit done for today, or undo today's mark."`
	Done   HabitDoneCmd   `cmd:"" help:"Mark a habit done for today. Fails if it already is."`
	Undo   HabitUndoCmd   `cmd:"" help:"Undo today's mark. Fails if there is none."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit."`
}

type HabitAddCmd struct {
	Title     string `arg:"" optional:"" help:"Habit title."`
	Preset    string `short:"p" help:"Use a preset (read|run|code) instead of a title."`
	Frequency string `short:"f" help:"Frequency (Daily|Weekly|Weekdays)." default:"Daily"`
	Icon      string `short:"i" help:"Icon (zap|flame|activity|calendar|book_open|check)." default:"zap"`
}

func (c *HabitAddCmd) Validate() error {
	if c.Preset == "" && strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("a title or --preset is required")
	}
	if c.Preset != "" {
		if _, ok := models.LookupPreset(c.Preset); !ok {
			return fmt.Errorf("unknown preset %q", c.Preset)
		}
	}
	return nil
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}

	in := engine.NewHabit{Title: c.Title, Frequency: c.Frequency, Icon: c.Icon}
	if p, ok := models.LookupPreset(c.Preset); ok {
		in = engine.NewHabit{Title: p.Title, Frequency: string(models.FrequencyDaily), Icon: string(p.Icon)}
	}

	id, err := eng.CreateHabit(ctx.Ctx(), in)
	if err != nil {
		return err
	}
	ctx.Printf("Added habit: %s (ID: %s)\n", strings.TrimSpace(in.Title), id)
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}

	habits := eng.View().Habits
	if len(habits) == 0 {
		ctx.Println("No habits yet. Add one with 'restreak habit add'.")
		return nil
	}

	for _, h := range habits {
		mark := " "
		if h.DoneToday {
			mark = "x"
		}
		ctx.Printf("  [%s] %s - %d day streak (%s)\n", mark, h.Title, h.Streak, h.Frequency)
		ctx.Printf("      ID: %s\n", h.ID)
	}
	return nil
}

type HabitToggleCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
}

func (c *HabitToggleCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	h, err := Resolve(eng.View(), c.Habit)
	if err != nil {
		return err
	}

	res, err := eng.ToggleCompletion(ctx.Ctx(), h.ID)
	if err != nil {
		return err
	}
	printResult(ctx, h, res)
	return nil
}

type HabitDoneCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
}

func (c *HabitDoneCmd) Run(ctx *cli.Context) error {
	return applyToday(ctx, c.Habit, (*engine.Engine).CompleteToday)
}

type HabitUndoCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
}

func (c *HabitUndoCmd) Run(ctx *cli.Context) error {
	return applyToday(ctx, c.Habit, (*engine.Engine).UndoToday)
}

func applyToday(ctx *cli.Context, ref string, apply func(*engine.Engine, context.Context, string) (engine.ToggleResult, error)) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	h, err := Resolve(eng.View(), ref)
	if err != nil {
		return err
	}
	res, err := apply(eng, ctx.Ctx(), h.ID)
	if err != nil {
		return err
	}
	printResult(ctx, h, res)
	return nil
}

func printResult(ctx *cli.Context, h models.Habit, res engine.ToggleResult) {
	switch {
	case res.Skipped:
		ctx.Printf("%s was deleted before the toggle landed\n", h.Title)
	case res.Action == streak.Complete:
		ctx.Printf("✓ %s done for %s (%d day streak)\n", res.Habit.Title, res.Day, res.Habit.Streak)
		ctx.Println(res.Toast)
	default:
		ctx.Printf("Undid %s for %s (%d day streak)\n", res.Habit.Title, res.Day, res.Habit.Streak)
	}
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	h, err := Resolve(eng.View(), c.Habit)
	if err != nil {
		return err
	}
	if err := eng.DeleteHabit(ctx.Ctx(), h.ID); err != nil {
		return err
	}
	ctx.Printf("Deleted habit: %s\n", h.Title)
	return nil
}

// Resolve finds a habit by exact ID, then by case-insensitive title.
func Resolve(v *engine.View, ref string) (models.Habit, error) {
	if h, ok := v.Habit(ref); ok {
		return h, nil
	}

	var matches []models.Habit
	for _, h := range v.RawHabits() {
		if strings.EqualFold(strings.TrimSpace(h.Title), strings.TrimSpace(ref)) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return models.Habit{}, errors.NotFound("resolve", "habit", ref, nil)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, errors.Invalid("resolve", "habit", fmt.Errorf("%d habits are titled %q, use the ID", len(matches), ref))
	}
}
