package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/restreak/internal/logger"
	"github.com/julianstephens/restreak/internal/migration"
	"github.com/julianstephens/restreak/internal/storage"
	"github.com/julianstephens/restreak/internal/storage/sqlstore"
	"github.com/julianstephens/restreak/migrations"
)

// Store is the local single-file backend. Every committed write is
// followed by a re-query of the touched collection and a publish.
type Store struct {
	*sqlstore.Store
	path string
	db   *sql.DB
}

var _ storage.Provider = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := s.open(); err != nil {
		return err
	}

	if _, err := s.Migrate(func(msg string) { logger.Info(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'restreak init' first")
	}

	if err := s.open(); err != nil {
		return err
	}

	return s.runner().ValidateVersion()
}

// Open connects without checking the schema version. migrate uses it on
// databases that are behind.
func (s *Store) Open() error {
	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return s.open()
}

func (s *Store) Close() error {
	if s.Store != nil {
		s.CloseFeeds()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate applies pending embedded migrations.
func (s *Store) Migrate(logFn func(string)) (int, error) {
	return s.runner().ApplyMigrations(logFn)
}

// MigrationStatus reports the schema position without changing anything.
func (s *Store) MigrationStatus() (migration.Status, error) {
	return s.runner().Status()
}

func (s *Store) GetConfigPath() string {
	return s.path
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps writers from tripping over SQLITE_BUSY
	db.SetMaxOpenConns(1)
	s.db = db
	s.Store = sqlstore.New(db, migration.SQLite)
	s.Store.OnCommit = func(c sqlstore.Collection) {
		if err := s.Refresh(context.Background(), c); err != nil {
			logger.Error("Failed to publish snapshot", "collection", c, "error", err)
		}
	}
	return nil
}

func (s *Store) runner() *migration.Runner {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		// the embedded directory is fixed at build time
		panic(fmt.Sprintf("failed to access sqlite migrations: %v", err))
	}
	return migration.NewRunner(s.db, subFS, migration.SQLite)
}
