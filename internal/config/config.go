// Package config loads restreak settings from config.yaml, an optional .env
// file and RESTREAK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/utils"
)

type Config struct {
	Backend       string          `yaml:"backend"`
	Timezone      string          `yaml:"timezone"`
	Debug         bool            `yaml:"debug"`
	Notifications bool            `yaml:"notifications"`
	SettleTimeout time.Duration   `yaml:"toggle_settle_timeout"`
	SQLite        SQLiteConfig    `yaml:"sqlite"`
	Postgres      PostgresConfig  `yaml:"postgres"`
	Firestore     FirestoreConfig `yaml:"firestore"`
	Lock          LockConfig      `yaml:"lock"`
	AMQP          AMQPConfig      `yaml:"amqp"`
	Mentor        MentorConfig    `yaml:"mentor"`
	HTTP          HTTPConfig      `yaml:"http"`

	// Dir is the directory the config was resolved against; logs live under it.
	Dir string `yaml:"-"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig never carries credentials; the connection string comes
// from RESTREAK_POSTGRES_URL or the OS keyring.
type PostgresConfig struct {
	URL string `yaml:"-"`
}

type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id"`
	AppID           string `yaml:"app_id"`
	UserID          string `yaml:"user_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type LockConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type MentorConfig struct {
	Model         string `yaml:"model"`
	BaseURL       string `yaml:"base_url"`
	RatePerMinute int    `yaml:"rate_per_minute"`
	APIKey        string `yaml:"-"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

func Default() *Config {
	dir := ExpandHome(constants.DefaultConfigDir)
	return &Config{
		Backend:       constants.BackendSQLite,
		Timezone:      constants.DefaultTimezone,
		Notifications: true,
		SettleTimeout: constants.DefaultSettleTimeout,
		SQLite:        SQLiteConfig{Path: filepath.Join(dir, constants.DefaultDBFile)},
		Lock:          LockConfig{Backend: constants.LockLocal},
		AMQP:          AMQPConfig{Exchange: constants.EventsExchange},
		Mentor:        MentorConfig{Model: constants.DefaultMentorModel, BaseURL: constants.DefaultMentorURL, RatePerMinute: 6},
		HTTP:          HTTPConfig{Addr: "127.0.0.1:8787"},
		Dir:           dir,
	}
}

// DefaultPath is ~/.config/restreak/config.yaml.
func DefaultPath() string {
	return filepath.Join(ExpandHome(constants.DefaultConfigDir), constants.DefaultConfigFile)
}

// Load reads path (a missing file yields defaults), then .env files from the
// working directory and the config directory, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	path = ExpandHome(path)
	cfg.Dir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// godotenv never overrides variables that are already set.
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(cfg.Dir, ".env"))

	cfg.applyEnv()
	cfg.SQLite.Path = ExpandHome(cfg.SQLite.Path)
	cfg.Firestore.CredentialsFile = ExpandHome(cfg.Firestore.CredentialsFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Backend = getEnv("RESTREAK_BACKEND", c.Backend)
	c.Timezone = getEnv("RESTREAK_TIMEZONE", c.Timezone)
	c.Debug = getEnvAsBool("RESTREAK_DEBUG", c.Debug)
	c.Notifications = getEnvAsBool("RESTREAK_NOTIFICATIONS", c.Notifications)
	c.SettleTimeout = getEnvAsDuration("RESTREAK_TOGGLE_SETTLE_TIMEOUT", c.SettleTimeout)

	c.SQLite.Path = getEnv("RESTREAK_SQLITE_PATH", c.SQLite.Path)
	c.Postgres.URL = getEnv("RESTREAK_POSTGRES_URL", c.Postgres.URL)

	c.Firestore.ProjectID = getEnv("RESTREAK_FIRESTORE_PROJECT_ID", c.Firestore.ProjectID)
	c.Firestore.AppID = getEnv("RESTREAK_FIRESTORE_APP_ID", c.Firestore.AppID)
	c.Firestore.UserID = getEnv("RESTREAK_FIRESTORE_USER_ID", c.Firestore.UserID)
	c.Firestore.CredentialsFile = getEnv("RESTREAK_FIRESTORE_CREDENTIALS_FILE", c.Firestore.CredentialsFile)

	c.Lock.Backend = getEnv("RESTREAK_LOCK_BACKEND", c.Lock.Backend)
	c.Lock.RedisAddr = getEnv("RESTREAK_REDIS_ADDR", c.Lock.RedisAddr)
	c.Lock.RedisDB = getEnvAsInt("RESTREAK_REDIS_DB", c.Lock.RedisDB)

	c.AMQP.URL = getEnv("RESTREAK_AMQP_URL", c.AMQP.URL)
	c.AMQP.Exchange = getEnv("RESTREAK_AMQP_EXCHANGE", c.AMQP.Exchange)

	c.Mentor.Model = getEnv("RESTREAK_MENTOR_MODEL", c.Mentor.Model)
	c.Mentor.BaseURL = getEnv("RESTREAK_MENTOR_BASE_URL", c.Mentor.BaseURL)
	c.Mentor.RatePerMinute = getEnvAsInt("RESTREAK_MENTOR_RATE_PER_MINUTE", c.Mentor.RatePerMinute)
	c.Mentor.APIKey = getEnv("RESTREAK_GEMINI_API_KEY", c.Mentor.APIKey)

	c.HTTP.Addr = getEnv("RESTREAK_HTTP_ADDR", c.HTTP.Addr)
}

func (c *Config) Validate() error {
	switch c.Backend {
	case constants.BackendSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite backend needs sqlite.path")
		}
	case constants.BackendPostgres, constants.BackendMemory:
	case constants.BackendFirestore:
		if c.Firestore.ProjectID == "" || c.Firestore.AppID == "" || c.Firestore.UserID == "" {
			return errors.New("firestore backend needs firestore.project_id, app_id and user_id")
		}
	default:
		return fmt.Errorf("unknown backend %q (expected sqlite, postgres, firestore or memory)", c.Backend)
	}

	switch c.Lock.Backend {
	case constants.LockLocal:
	case constants.LockRedis:
		if c.Lock.RedisAddr == "" {
			return errors.New("redis lock needs lock.redis_addr")
		}
	default:
		return fmt.Errorf("unknown lock backend %q (expected local or redis)", c.Lock.Backend)
	}

	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	if c.SettleTimeout <= 0 {
		return fmt.Errorf("toggle_settle_timeout must be positive, got %s", c.SettleTimeout)
	}
	return nil
}

// LockTTL is how long a toggle lock may be held. A toggle keeps the lock
// through its write and the settle wait, so the TTL always outlives both.
func (c *Config) LockTTL() time.Duration {
	return max(constants.ToggleLockTTL, c.SettleTimeout+constants.LockTTLMargin)
}

// Save writes the non-secret fields to path, creating the directory.
func (c *Config) Save(path string) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
