package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/restreak/internal/cli"
	"github.com/julianstephens/restreak/internal/cli/habits"
	"github.com/julianstephens/restreak/internal/cli/system"
	"github.com/julianstephens/restreak/internal/cli/views"
	"github.com/julianstephens/restreak/internal/config"
	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"~/.config/restreak/config.yaml"`
	Debug   bool   `help:"Log debug output to stderr."`

	Init      system.InitCmd     `cmd:"" help:"Initialize restreak storage and optionally the profile."`
	Migrate   system.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Tui       system.TuiCmd      `cmd:"" help:"Launch the interactive dashboard." default:"1"`
	Serve     system.ServeCmd    `cmd:"" help:"Serve the JSON API, websocket feed and metrics."`
	Habit     habits.HabitCmd    `cmd:"" help:"Manage habits."`
	Dashboard views.DashboardCmd `cmd:"" help:"Show today's dashboard."`
	Calendar  views.CalendarCmd  `cmd:"" help:"Show the completion calendar for a month."`
	Rewards   views.RewardsCmd   `cmd:"" help:"Show all badges and which are unlocked."`
	Profile   views.ProfileCmd   `cmd:"" help:"Show the profile, achievements and recent activity."`
	Activity  views.ActivityCmd  `cmd:"" help:"Show recent activity."`
	Mentor    habits.MentorCmd   `cmd:"" help:"Ask the AI mentor for advice on your habits."`
	Badges    habits.BadgesCmd   `cmd:"" help:"Manage saved badges."`
	Validate  system.ValidateCmd `cmd:"" help:"Check stored habits for inconsistencies."`
	Backup    system.BackupCmd   `cmd:"" help:"Manage sqlite database backups."`
	Keyring   system.KeyringCmd  `cmd:"" help:"Manage secrets in the OS keyring."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit streaks, calendar and badges derived live from your habit store"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)
	command := kctx.Command()

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	if CLI.Debug {
		cfg.Debug = true
	}
	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug,
		ConfigDir: cfg.Dir,
		Stderr:    strings.HasPrefix(command, "serve"),
	}); err != nil {
		errors.Fatalf("failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := cli.NewContext(ctx, cfg, nil)
	appCtx.ConfigPath = config.ExpandHome(CLI.Config)

	// keyring commands manage the secrets a store may need, so they run without one
	if !strings.HasPrefix(command, "keyring") {
		store, err := cli.OpenStore(cfg)
		if err != nil {
			errors.Fatal(err)
		}
		appCtx.Store = store

		// init and migrate handle their own connection
		if !strings.HasPrefix(command, "init") && !strings.HasPrefix(command, "migrate") {
			if err := store.Load(); err != nil {
				errors.Fatal(err)
			}
		}
	}

	err = kctx.Run(appCtx)
	appCtx.Close()
	errors.Fatal(err)
}
