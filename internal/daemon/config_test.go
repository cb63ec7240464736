package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hotelops/staffxp/internal/domain"
	"github.com/hotelops/staffxp/internal/infra/sqlite"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8484 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8484)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, want sqlite", cfg.Store.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Engine.MaxRetries != 3 {
		t.Errorf("expected defaults, got max_retries %d", cfg.Engine.MaxRetries)
	}
}

func TestLoadConfigFile_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
port = 9090
actions_per_minute = 30

[store]
driver = "redis"

[store.redis]
addr = "redis.internal:6379"
prefix = "hotel-a:"

[engine]
weekly_challenges = 3
persist_timeout = "2s"

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.API.Port != 9090 || cfg.API.ActionsPerMinute != 30 {
		t.Errorf("unexpected api section %+v", cfg.API)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Error("unset keys should keep defaults")
	}
	if cfg.Store.Driver != "redis" || cfg.Store.Redis.Addr != "redis.internal:6379" || cfg.Store.Redis.Prefix != "hotel-a:" {
		t.Errorf("unexpected store section %+v", cfg.Store)
	}
	if cfg.Engine.WeeklyChallenges != 3 || parseDuration(cfg.Engine.PersistTimeout, 0) != 2*time.Second {
		t.Errorf("unexpected engine section %+v", cfg.Engine)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoadConfigFile_EnvOverrides(t *testing.T) {
	t.Setenv("STAFFXP_API_PORT", "7000")
	t.Setenv("STAFFXP_LOG_LEVEL", "warn")
	t.Setenv("STAFFXP_STORE_DRIVER", "firestore")
	t.Setenv("STAFFXP_FIRESTORE_PROJECT", "hotel-prod")

	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.API.Port != 7000 || cfg.Logging.Level != "warn" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.API, cfg.Logging)
	}
	if cfg.Store.Driver != "firestore" || cfg.Store.Firestore.ProjectID != "hotel-prod" {
		t.Errorf("unexpected store %+v", cfg.Store)
	}
}

func TestLoadConfigFile_BadPortEnv(t *testing.T) {
	t.Setenv("STAFFXP_API_PORT", "eighty")
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "config.toml")); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "Port"},
		{"bad driver", func(c *Config) { c.Store.Driver = "mongo" }, "Driver"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "Level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "Format"},
		{"negative rate", func(c *Config) { c.API.ActionsPerMinute = -1 }, "ActionsPerMinute"},
		{"redis without addr", func(c *Config) { c.Store.Driver = "redis"; c.Store.Redis.Addr = "" }, "store.redis.addr"},
		{"firestore without project", func(c *Config) { c.Store.Driver = "firestore" }, "project_id"},
		{"bad time zone", func(c *Config) { c.Engine.TimeZone = "Mars/Olympus_Mons" }, "time_zone"},
		{"bad timeout", func(c *Config) { c.Engine.PersistTimeout = "soon" }, "persist_timeout"},
		{"bad breaker reset", func(c *Config) { c.Store.BreakerReset = "later" }, "breaker_reset"},
		{"negative breaker", func(c *Config) { c.Store.BreakerThreshold = -1 }, "BreakerThreshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("STAFFXP_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9191
	cfg.Engine.WeeklyChallenges = 2
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := LoadConfigFile(filepath.Join(Home(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if got.API.Port != 9191 || got.Engine.WeeklyChallenges != 2 {
		t.Errorf("round trip lost values: %+v %+v", got.API, got.Engine)
	}
}

func TestParseDuration(t *testing.T) {
	if got := parseDuration("", time.Second); got != time.Second {
		t.Errorf("empty: got %v", got)
	}
	if got := parseDuration("bogus", time.Second); got != time.Second {
		t.Errorf("bogus: got %v", got)
	}
	if got := parseDuration("250ms", time.Second); got != 250*time.Millisecond {
		t.Errorf("250ms: got %v", got)
	}
}

// ─── Daemon Wiring ──────────────────────────────────────────────────────────

func TestNewWithConfig_SQLite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Dir = t.TempDir()
	cfg.Logging.Level = "error"

	d, err := NewWithConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer d.Close()

	if _, ok := d.Store.(domain.Leaderboard); !ok {
		t.Errorf("guarded sqlite store should keep the leaderboard, got %T", d.Store)
	}
	res, err := d.Engine.PerformAction(context.Background(), "u1", domain.Action{Kind: domain.ActionCompleteMaintenance})
	if err != nil {
		t.Fatalf("PerformAction: %v", err)
	}
	if res.Stats.MaintenanceCompleted != 1 {
		t.Errorf("expected 1 maintenance, got %d", res.Stats.MaintenanceCompleted)
	}

	d.Health.CheckNow(context.Background())
	if !d.Health.IsHealthy() {
		t.Errorf("expected healthy daemon, got %+v", d.Health.Statuses())
	}
}

func TestNewWithConfig_BadCatalog(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Dir = t.TempDir()
	cfg.Engine.CatalogFile = filepath.Join(t.TempDir(), "missing.toml")

	if _, err := NewWithConfig(context.Background(), cfg); err == nil {
		t.Error("expected error for missing catalog file")
	}
}

func TestNewWithConfig_NoBreaker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Dir = t.TempDir()
	cfg.Store.BreakerThreshold = 0
	cfg.Logging.Level = "error"

	d, err := NewWithConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer d.Close()

	if _, ok := d.Store.(*sqlite.DB); !ok {
		t.Errorf("expected bare sqlite store, got %T", d.Store)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	if _, err := openStore(context.Background(), StoreConfig{Driver: "mongo"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
