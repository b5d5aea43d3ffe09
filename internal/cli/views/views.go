// Package views prints the derived dashboard, calendar, rewards, profile
// and activity views, as text or JSON.
package views

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/julianstephens/restreak/internal/cli"
	"github.com/julianstephens/restreak/internal/engine"
	"github.com/julianstephens/restreak/internal/tui/components/calendar"
	"github.com/julianstephens/restreak/internal/utils"
)

// Output is embedded by every view command.
type Output struct {
	JSON bool `help:"Print machine-readable JSON."`
}

func (o Output) emit(ctx *cli.Context, v any, text func()) error {
	if !o.JSON {
		text()
		return nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.Println(string(b))
	return nil
}

type DashboardCmd struct {
	Output
}

func (c *DashboardCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	d := eng.Dashboard()
	return c.emit(ctx, d, func() {
		name := d.Profile.DisplayName
		if name == "" {
			name = "friend"
		}
		ctx.Printf("Welcome back, %s\n\n", name)
		printMetrics(ctx, d.Metrics)

		if len(d.RecentBadges) > 0 {
			names := make([]string, len(d.RecentBadges))
			for i, b := range d.RecentBadges {
				names[i] = b.Name
			}
			ctx.Printf("Recent badges: %s\n", strings.Join(names, ", "))
		}
		ctx.Println()

		if len(d.Habits) == 0 {
			ctx.Println("No habits yet.")
			return
		}
		ctx.Println("Today:")
		for _, h := range d.Habits {
			mark := " "
			if h.DoneToday {
				mark = "x"
			}
			ctx.Printf("  [%s] %s (%d)\n", mark, h.Title, h.Streak)
		}
	})
}

type CalendarCmd struct {
	Output
	Month string `short:"m" help:"Month to show (YYYY-MM). Defaults to the current month."`
}

func (c *CalendarCmd) Validate() error {
	if c.Month == "" {
		return nil
	}
	_, _, err := utils.ParseMonth(c.Month)
	return err
}

func (c *CalendarCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}

	month := eng.View().Calendar
	if c.Month != "" {
		y, m, err := utils.ParseMonth(c.Month)
		if err != nil {
			return err
		}
		month = eng.Calendar(y, m)
	}
	return c.emit(ctx, month, func() {
		ctx.Printf("%s\n%s\n", calendar.Render(month), calendar.Legend())
	})
}

type RewardsCmd struct {
	Output
}

func (c *RewardsCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	rewards := eng.Rewards()
	return c.emit(ctx, rewards, func() {
		for _, s := range rewards {
			mark := "🔒"
			if s.Unlocked {
				mark = "🏆"
			}
			ctx.Printf("%s %-16s %s\n", mark, s.Badge.Name, s.Badge.Description)
		}
	})
}

type ProfileCmd struct {
	Output
}

func (c *ProfileCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	p := eng.Profile()
	return c.emit(ctx, p, func() {
		if !p.Profile.Exists() {
			ctx.Println("No profile yet. Run 'restreak init --name <name>' to create one.")
			return
		}
		ctx.Printf("(%s) %s\n", p.Initial, p.Profile.DisplayName)
		if p.Profile.Email != "" {
			ctx.Printf("    %s\n", p.Profile.Email)
		}
		if p.Profile.JoinDate != nil {
			ctx.Printf("    joined %s\n", utils.FormatDate(*p.Profile.JoinDate))
		}
		ctx.Println()
		printMetrics(ctx, p.Metrics)

		if len(p.TopAchievements) > 0 {
			ctx.Println("\nTop achievements:")
			for _, b := range p.TopAchievements {
				ctx.Printf("  🏆 %s - %s\n", b.Name, b.Description)
			}
		}
		if len(p.Activity) > 0 {
			ctx.Println("\nRecent activity:")
			printActivity(ctx, p.Activity)
		}
	})
}

type ActivityCmd struct {
	Output
}

func (c *ActivityCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	rows := eng.Activity()
	return c.emit(ctx, rows, func() {
		if len(rows) == 0 {
			ctx.Println("No activity yet.")
			return
		}
		printActivity(ctx, rows)
	})
}

func printMetrics(ctx *cli.Context, m engine.Metrics) {
	ctx.Printf("Habits:          %d (%d done today, %d%%)\n", m.TotalHabits, m.CompletedToday, m.CompletionRate)
	ctx.Printf("Best streak:     %d\n", m.BestStreak)
	ctx.Printf("Active streaks:  %d\n", m.ActiveStreaks)
	ctx.Printf("Days active:     %d\n", m.DaysActive)
	ctx.Printf("Badges earned:   %d\n", m.EarnedBadges)
}

func printActivity(ctx *cli.Context, rows []engine.ActivityRow) {
	for _, r := range rows {
		ctx.Printf("  %-40s %s\n", r.Text, r.Ago)
	}
}
