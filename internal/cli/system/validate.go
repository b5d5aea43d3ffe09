package system

import (
	"fmt"
	"strings"

	"github.com/julianstephens/restreak/internal/cli"
	"github.com/julianstephens/restreak/internal/validation"
)

type ValidateCmd struct{}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	v := eng.View()

	validator := validation.New()
	res := validator.ValidateHabits(v.RawHabits(), v.Today)
	res.Merge(validator.ValidateProfile(v.Profile))

	ctx.Println(strings.TrimRight(res.FormatReport(), "\n"))
	if res.HasConflicts() {
		return fmt.Errorf("found %d conflict(s)", len(res.Conflicts))
	}
	return nil
}
