package system

import (
	"github.com/julianstephens/restreak/internal/cli"
	"github.com/julianstephens/restreak/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	ctx.PerformAutomaticBackup()

	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	var m tui.Mentor
	if client := ctx.Mentor(); client != nil {
		m = client
	}
	return tui.Run(ctx.Ctx(), eng, m)
}
