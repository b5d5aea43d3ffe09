package habits

import (
	"fmt"

	"github.com/julianstephens/restreak/internal/badges"
	"github.com/julianstephens/restreak/internal/cli"
)

type BadgesCmd struct {
	Sync BadgesSyncCmd `cmd:"" help:"Save currently unlocked badges to the profile." default:"1"`
}

type BadgesSyncCmd struct{}

func (c *BadgesSyncCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	added, err := eng.SyncBadges(ctx.Ctx())
	if err != nil {
		return err
	}
	if len(added) == 0 {
		ctx.Println("Badges already up to date.")
		return nil
	}
	for _, id := range added {
		name := id
		if b, ok := badges.Lookup(id); ok {
			name = b.Name
		}
		ctx.Printf("✓ Saved badge: %s\n", name)
	}
	return nil
}

type MentorCmd struct{}

func (c *MentorCmd) Run(ctx *cli.Context) error {
	client := ctx.Mentor()
	if client == nil {
		return fmt.Errorf("no Gemini API key; set RESTREAK_GEMINI_API_KEY or run 'restreak keyring set gemini <key>'")
	}
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}

	v := eng.View()
	// Advise always returns something to show; failures are logged there.
	advice, _ := client.Advise(ctx.Ctx(), v.Profile.DisplayName, v.RawHabits())
	ctx.Println(advice)
	return nil
}
