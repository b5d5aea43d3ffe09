package system

import (
	"fmt"

	"github.com/julianstephens/restreak/internal/cli"
	"github.com/julianstephens/restreak/internal/migration"
)

// migrator is implemented by the SQL backends.
type migrator interface {
	Open() error
	Migrate(logFn func(string)) (int, error)
	MigrationStatus() (migration.Status, error)
}

type MigrateCmd struct {
	Status bool `help:"Show the schema version without applying anything."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return fmt.Errorf("migrate only applies to the sqlite and postgres backends (current: %s)", ctx.Config.Backend)
	}
	if err := m.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if c.Status {
		st, err := m.MigrationStatus()
		if err != nil {
			return err
		}
		ctx.Printf("Schema version: %d (latest %d)\n", st.Current, st.Latest)
		for _, p := range st.Pending {
			ctx.Printf("  pending: %03d %s\n", p.Version, p.Name)
		}
		return nil
	}

	count, err := m.Migrate(func(msg string) { ctx.Println(msg) })
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if count == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
