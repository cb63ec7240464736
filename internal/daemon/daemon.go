package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hotelops/staffxp/internal/api"
	"github.com/hotelops/staffxp/internal/app/engagement"
	"github.com/hotelops/staffxp/internal/domain"
	"github.com/hotelops/staffxp/internal/health"
	"github.com/hotelops/staffxp/internal/infra/firestore"
	"github.com/hotelops/staffxp/internal/infra/healing"
	"github.com/hotelops/staffxp/internal/infra/logging"
	"github.com/hotelops/staffxp/internal/infra/redisstore"
	"github.com/hotelops/staffxp/internal/infra/sqlite"
)

// Daemon is the core staffxp runtime. It wires together all services.
type Daemon struct {
	Config Config
	Log    zerolog.Logger
	Store  domain.StatsStore
	Engine *engagement.Engine
	Server *api.Server
	Health *health.Checker
	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(context.Background(), cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(ctx context.Context, cfg Config) (*Daemon, error) {
	log := logging.Stderr(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	cat, err := engagement.LoadCatalog(cfg.Engine.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if cfg.Store.BreakerThreshold > 0 {
		store = healing.Guard(store, healing.NewBreaker(healing.Config{
			FailureThreshold: cfg.Store.BreakerThreshold,
			ResetTimeout:     parseDuration(cfg.Store.BreakerReset, 30*time.Second),
		}))
	}

	eng, err := engagement.NewEngine(store, cat, engagement.Options{
		PersistTimeout:   parseDuration(cfg.Engine.PersistTimeout, 5*time.Second),
		MaxRetries:       cfg.Engine.MaxRetries,
		Location:         loc,
		WeeklyChallenges: cfg.Engine.WeeklyChallenges,
	}, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	srv := api.NewServer(eng, api.Options{
		ActionsPerMinute: cfg.API.ActionsPerMinute,
		CORSOrigins:      cfg.API.CORSOrigins,
	}, log)

	// Enable Prometheus /metrics if configured
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	checker := health.NewChecker(eng, cat, parseDuration(cfg.Telemetry.HealthInterval, 30*time.Second))
	srv.SetHealth(checker)

	log.Info().
		Str("store", cfg.Store.Driver).
		Int("badges", len(cat.Badges)).
		Int("challenges", len(cat.Challenges)).
		Str("time_zone", loc.String()).
		Msg("engine ready")

	return &Daemon{
		Config: cfg,
		Log:    log,
		Store:  store,
		Engine: eng,
		Server: srv,
		Health: checker,
	}, nil
}

// openStore builds the configured StatsStore.
func openStore(ctx context.Context, cfg StoreConfig) (domain.StatsStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dir := cfg.Dir
		if dir == "" {
			dir = staffxpHome()
		}
		db, err := sqlite.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	case "redis":
		s, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	case "firestore":
		s, err := firestore.Open(ctx, firestore.Options{
			ProjectID:       cfg.Firestore.ProjectID,
			Collection:      cfg.Firestore.Collection,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("open firestore store: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Health checker (always runs)
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		d.Log.Info().Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		d.Server.Hub().Close()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.Store.Close()
	}()

	d.Log.Info().Str("addr", "http://"+addr).Msg("staffxp serving")
	if d.Config.Telemetry.Prometheus {
		d.Log.Info().Str("url", "http://"+addr+"/metrics").Msg("metrics enabled")
	}

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
