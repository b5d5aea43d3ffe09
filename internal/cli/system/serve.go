package system

import (
	"github.com/julianstephens/restreak/internal/cli"
	"github.com/julianstephens/restreak/internal/server"
)

type ServeCmd struct {
	Addr string `help:"Listen address. Defaults to http.addr from the config."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	var m server.Mentor
	if client := ctx.Mentor(); client != nil {
		m = client
	}

	addr := c.Addr
	if addr == "" {
		addr = ctx.Config.HTTP.Addr
	}
	return server.New(eng, m).Run(ctx.Ctx(), addr)
}
