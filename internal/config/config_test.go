package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/restreak/internal/constants"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != constants.BackendSQLite || cfg.Lock.Backend != constants.LockLocal {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.SettleTimeout != constants.DefaultSettleTimeout {
		t.Errorf("SettleTimeout = %s", cfg.SettleTimeout)
	}
	if cfg.Dir != filepath.Dir(path) {
		t.Errorf("Dir = %s, want %s", cfg.Dir, filepath.Dir(path))
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
backend: firestore
timezone: UTC
toggle_settle_timeout: 5s
firestore:
  project_id: demo
  app_id: restreak
  user_id: u1
mentor:
  rate_per_minute: 2
http:
  addr: ":9000"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != constants.BackendFirestore || cfg.Firestore.UserID != "u1" {
		t.Errorf("firestore settings not read: %+v", cfg.Firestore)
	}
	if cfg.SettleTimeout != 5*time.Second || cfg.Mentor.RatePerMinute != 2 || cfg.HTTP.Addr != ":9000" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Mentor.Model != constants.DefaultMentorModel {
		t.Errorf("unset field lost its default: %q", cfg.Mentor.Model)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend: sqlite\nlock:\n  backend: local\n")
	t.Setenv("RESTREAK_BACKEND", "memory")
	t.Setenv("RESTREAK_LOCK_BACKEND", "redis")
	t.Setenv("RESTREAK_REDIS_ADDR", "localhost:6379")
	t.Setenv("RESTREAK_TOGGLE_SETTLE_TIMEOUT", "750ms")
	t.Setenv("RESTREAK_GEMINI_API_KEY", "k")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != constants.BackendMemory || cfg.Lock.Backend != constants.LockRedis || cfg.Lock.RedisAddr != "localhost:6379" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.SettleTimeout != 750*time.Millisecond || cfg.Mentor.APIKey != "k" {
		t.Errorf("unexpected values: %s %q", cfg.SettleTimeout, cfg.Mentor.APIKey)
	}
}

func TestDotEnvInConfigDir(t *testing.T) {
	path := writeConfig(t, "backend: memory\n")
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envFile, []byte("RESTREAK_HTTP_ADDR=127.0.0.1:7000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("RESTREAK_HTTP_ADDR") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:7000" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Backend = "mongo" }, "unknown backend"},
		{"firestore incomplete", func(c *Config) { c.Backend = constants.BackendFirestore }, "firestore backend needs"},
		{"redis without addr", func(c *Config) { c.Lock.Backend = constants.LockRedis }, "redis_addr"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "invalid timezone"},
		{"zero settle", func(c *Config) { c.SettleTimeout = 0 }, "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLockTTLOutlivesSettleTimeout(t *testing.T) {
	tests := []struct {
		settle time.Duration
		want   time.Duration
	}{
		{time.Second, constants.ToggleLockTTL},
		{constants.DefaultSettleTimeout, constants.ToggleLockTTL},
		{10 * time.Second, 10*time.Second + constants.LockTTLMargin},
		{time.Minute, time.Minute + constants.LockTTLMargin},
	}
	for _, tt := range tests {
		t.Run(tt.settle.String(), func(t *testing.T) {
			cfg := Default()
			cfg.SettleTimeout = tt.settle
			got := cfg.LockTTL()
			if got != tt.want {
				t.Errorf("LockTTL() = %s, want %s", got, tt.want)
			}
			if got <= tt.settle {
				t.Errorf("LockTTL() = %s does not outlive settle timeout %s", got, tt.settle)
			}
		})
	}
}

func TestSaveRoundTripKeepsSecretsOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Backend = constants.BackendMemory
	cfg.Postgres.URL = "postgres://secret@db/restreak"
	cfg.Mentor.APIKey = "secret-key"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "secret") {
		t.Errorf("secrets written to config file:\n%s", data)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Backend != constants.BackendMemory {
		t.Errorf("Backend = %q", loaded.Backend)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/x/y"); got != filepath.Join(home, "x/y") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got := ExpandHome("/abs"); got != "/abs" {
		t.Errorf("ExpandHome(/abs) = %q", got)
	}
}
