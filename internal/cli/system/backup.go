package system

import (
	"fmt"
	"path/filepath"

	"github.com/julianstephens/restreak/internal/backup"
	"github.com/julianstephens/restreak/internal/cli"
	"github.com/julianstephens/restreak/internal/constants"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List available backups."`
	Restore BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
}

func manager(ctx *cli.Context) (*backup.Manager, error) {
	if ctx.Config.Backend != constants.BackendSQLite {
		return nil, fmt.Errorf("backups only apply to the sqlite backend (current: %s)", ctx.Config.Backend)
	}
	return backup.NewManager(ctx.Config.SQLite.Path), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create()
	if err != nil {
		return err
	}
	ctx.Printf("✓ Backup created: %s\n", path)
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		ctx.Printf("No backups found in %s\n", mgr.Dir())
		return nil
	}
	for _, b := range backups {
		ctx.Printf("  %s  %s  %d KB\n", b.Timestamp.Format("2006-01-02 15:04:05"), filepath.Base(b.Path), b.Size/1024)
	}
	return nil
}

type BackupRestoreCmd struct {
	File string `arg:"" help:"Backup file name or path."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	path := c.File
	if filepath.Base(path) == path {
		path = filepath.Join(mgr.Dir(), path)
	}

	// the database file is replaced underneath the store
	if err := ctx.Store.Close(); err != nil {
		return err
	}
	saved, err := mgr.Restore(path)
	if saved != "" {
		ctx.Printf("Saved current database to: %s\n", saved)
	}
	if err != nil {
		return err
	}
	ctx.Printf("✓ Restored %s\n", filepath.Base(path))
	return nil
}
