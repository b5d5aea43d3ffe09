package system

import (
	"errors"
	"os"

	"github.com/julianstephens/restreak/internal/cli"
)

type InitCmd struct {
	Name  string `help:"Display name for the profile."`
	Email string `help:"Email for the profile."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized restreak storage at: %s\n", ctx.Store.GetConfigPath())

	if ctx.ConfigPath != "" {
		if _, err := os.Stat(ctx.ConfigPath); errors.Is(err, os.ErrNotExist) {
			if err := ctx.Config.Save(ctx.ConfigPath); err != nil {
				return err
			}
			ctx.Printf("Wrote config: %s\n", ctx.ConfigPath)
		}
	}

	if c.Name == "" {
		return nil
	}
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	created, err := eng.EnsureProfile(ctx.Ctx(), c.Name, c.Email)
	if err != nil {
		return err
	}
	if created {
		ctx.Printf("✓ Created profile for %s\n", c.Name)
	} else {
		ctx.Println("Profile already exists; left unchanged.")
	}
	return nil
}
