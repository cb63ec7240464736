// Package daemon manages the staffxp daemon lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Store     StoreConfig     `toml:"store"`
	Engine    EngineConfig    `toml:"engine"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host             string   `toml:"host" validate:"required"`
	Port             int      `toml:"port" validate:"min=1,max=65535"`
	CORSOrigins      []string `toml:"cors_origins"`
	ActionsPerMinute int      `toml:"actions_per_minute" validate:"gte=0"`
}

// StoreConfig selects and configures the stats store.
type StoreConfig struct {
	Driver string `toml:"driver" validate:"oneof=sqlite redis firestore"`
	Dir    string `toml:"dir"` // sqlite only
	// Consecutive backend failures before calls are short-circuited; 0 disables.
	BreakerThreshold int             `toml:"breaker_threshold" validate:"gte=0"`
	BreakerReset     string          `toml:"breaker_reset"`
	Redis            RedisConfig     `toml:"redis"`
	Firestore        FirestoreConfig `toml:"firestore"`
}

// RedisConfig configures the redis store.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db" validate:"gte=0"`
	Prefix   string `toml:"prefix"`
}

// FirestoreConfig configures the Firestore store.
type FirestoreConfig struct {
	ProjectID       string `toml:"project_id"`
	Collection      string `toml:"collection"`
	CredentialsFile string `toml:"credentials_file"`
}

// EngineConfig controls the gamification engine.
type EngineConfig struct {
	CatalogFile      string `toml:"catalog_file"` // empty: built-in catalog
	TimeZone         string `toml:"time_zone"`
	PersistTimeout   string `toml:"persist_timeout"`
	MaxRetries       int    `toml:"max_retries" validate:"gte=0,lte=10"`
	WeeklyChallenges int    `toml:"weekly_challenges" validate:"gte=0"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn error"`
	Format string `toml:"format" validate:"oneof=console json"`
}

// TelemetryConfig controls metrics and health reporting.
type TelemetryConfig struct {
	Prometheus     bool   `toml:"prometheus"`
	HealthInterval string `toml:"health_interval"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := staffxpHome()
	return Config{
		API: APIConfig{
			Host:             "127.0.0.1",
			Port:             8484,
			CORSOrigins:      []string{"*"},
			ActionsPerMinute: 120,
		},
		Store: StoreConfig{
			Driver:           "sqlite",
			Dir:              homeDir,
			BreakerThreshold: 5,
			BreakerReset:     "30s",
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "staffxp:",
			},
			Firestore: FirestoreConfig{
				Collection: "user_stats",
			},
		},
		Engine: EngineConfig{
			TimeZone:       "UTC",
			PersistTimeout: "5s",
			MaxRetries:     3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Prometheus:     true,
			HealthInterval: "30s",
		},
	}
}

// LoadConfig reads config from ~/.staffxp/config.toml, falling back to
// defaults. A .env file in the working directory is loaded first so its
// STAFFXP_* variables apply as overrides.
func LoadConfig() (Config, error) {
	_ = godotenv.Load() // optional
	return LoadConfigFile(filepath.Join(staffxpHome(), "config.toml"))
}

// LoadConfigFile reads config from path (missing file means defaults),
// applies environment overrides and validates the result.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays STAFFXP_* environment variables.
func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str("STAFFXP_API_HOST", &cfg.API.Host)
	str("STAFFXP_STORE_DRIVER", &cfg.Store.Driver)
	str("STAFFXP_STORE_DIR", &cfg.Store.Dir)
	str("STAFFXP_REDIS_ADDR", &cfg.Store.Redis.Addr)
	str("STAFFXP_REDIS_PASSWORD", &cfg.Store.Redis.Password)
	str("STAFFXP_FIRESTORE_PROJECT", &cfg.Store.Firestore.ProjectID)
	str("STAFFXP_FIRESTORE_CREDENTIALS", &cfg.Store.Firestore.CredentialsFile)
	str("STAFFXP_CATALOG_FILE", &cfg.Engine.CatalogFile)
	str("STAFFXP_TIME_ZONE", &cfg.Engine.TimeZone)
	str("STAFFXP_LOG_LEVEL", &cfg.Logging.Level)
	str("STAFFXP_LOG_FORMAT", &cfg.Logging.Format)

	if v, ok := os.LookupEnv("STAFFXP_API_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STAFFXP_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	return nil
}

// Validate checks struct tags plus the rules that span sections.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Store.Driver {
	case "redis":
		if c.Store.Redis.Addr == "" {
			return errors.New("invalid config: store.redis.addr is required for the redis driver")
		}
	case "firestore":
		if c.Store.Firestore.ProjectID == "" {
			return errors.New("invalid config: store.firestore.project_id is required for the firestore driver")
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: engine.time_zone: %w", err)
	}
	for _, d := range []struct{ name, value string }{
		{"engine.persist_timeout", c.Engine.PersistTimeout},
		{"store.breaker_reset", c.Store.BreakerReset},
		{"telemetry.health_interval", c.Telemetry.HealthInterval},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid config: %s: %w", d.name, err)
		}
	}
	return nil
}

// Location resolves engine.time_zone.
func (c Config) Location() (*time.Location, error) {
	if c.Engine.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Engine.TimeZone)
}

// SaveConfig writes the config to ~/.staffxp/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(staffxpHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// staffxpHome returns the staffxp data directory.
func staffxpHome() string {
	if env := os.Getenv("STAFFXP_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".staffxp")
}

// Home is exported for use by other packages.
func Home() string {
	return staffxpHome()
}
