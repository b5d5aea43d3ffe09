package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/restreak/internal/config"
	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/keyring"
	"github.com/julianstephens/restreak/internal/lock"
	"github.com/julianstephens/restreak/internal/storage"
	"github.com/julianstephens/restreak/internal/storage/firestore"
	"github.com/julianstephens/restreak/internal/storage/memory"
	"github.com/julianstephens/restreak/internal/storage/postgres"
	"github.com/julianstephens/restreak/internal/storage/sqlite"
)

// OpenStore builds the configured backend. Nothing is connected until
// Init or Load is called.
func OpenStore(cfg *config.Config) (storage.Provider, error) {
	switch cfg.Backend {
	case constants.BackendSQLite:
		return sqlite.NewStore(cfg.SQLite.Path), nil
	case constants.BackendPostgres:
		connStr, err := PostgresURL(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.New(connStr), nil
	case constants.BackendFirestore:
		return firestore.New(firestore.Config{
			ProjectID:       cfg.Firestore.ProjectID,
			AppID:           cfg.Firestore.AppID,
			UserID:          cfg.Firestore.UserID,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		}), nil
	case constants.BackendMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// PostgresURL prefers RESTREAK_POSTGRES_URL and falls back to the keyring.
// Passwords are refused in the environment but allowed in the keyring,
// which is encrypted.
func PostgresURL(cfg *config.Config) (string, error) {
	if cfg.Postgres.URL != "" {
		if err := postgres.ValidateConnString(cfg.Postgres.URL); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return "", fmt.Errorf("%w; store it with 'restreak keyring set postgres' or use PGPASSWORD", err)
			}
			return "", err
		}
		return cfg.Postgres.URL, nil
	}

	connStr, err := keyring.Get(keyring.PostgresConnection)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", errors.New("postgres backend needs RESTREAK_POSTGRES_URL or 'restreak keyring set postgres <url>'")
		}
		return "", err
	}
	if err := postgres.ValidateConnString(connStr); err != nil && !errors.Is(err, postgres.ErrEmbeddedCredentials) {
		return "", err
	}
	return connStr, nil
}

// NewLocker returns the toggle locker and a func releasing its resources.
func NewLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.Lock.Backend != constants.LockRedis {
		return lock.NewLocal(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Lock.RedisAddr,
		DB:   cfg.Lock.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Lock.RedisAddr, err)
	}
	return lock.NewRedis(rdb, constants.AppName, cfg.LockTTL()), func() { _ = rdb.Close() }, nil
}
