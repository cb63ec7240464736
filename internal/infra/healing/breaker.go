// Package healing guards the stats store with a circuit breaker.
//
// Breaker states:
//   - CLOSED  (normal) → consecutive failures reach threshold → OPEN
//   - OPEN    (blocking) → after reset timeout → HALF_OPEN
//   - HALF_OPEN (probing) → probes succeed → CLOSED, probe fails → OPEN
//
// Version conflicts and missing documents are answers, not failures, and
// never move the breaker.
package healing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hotelops/staffxp/internal/domain"
	"github.com/hotelops/staffxp/internal/infra/metrics"
)

// ErrCircuitOpen is returned while the breaker rejects store calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

// ═══════════════════════════════════════════════════════════════════════════
// Circuit Breaker
// ═══════════════════════════════════════════════════════════════════════════

// State is the breaker state.
type State int

const (
	Closed   State = iota // calls pass through
	Open                  // calls rejected immediately
	HalfOpen              // probe calls allowed
)

// String returns a human-readable breaker state.
func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Breaker.
type Config struct {
	FailureThreshold int           // consecutive failures to trip (default 5)
	ResetTimeout     time.Duration // time in OPEN before probing (default 30s)
	HalfOpenMax      int           // successful probes needed to close (default 2)
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMax:      2,
	}
}

// Breaker is a thread-safe circuit breaker.
type Breaker struct {
	mu        sync.Mutex
	cfg       Config
	state     State
	failures  int
	successes int // in HALF_OPEN
	trippedAt time.Time
	trips     int
	now       func() time.Time
}

// NewBreaker creates a breaker. Zero config fields take defaults.
func NewBreaker(cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = def.HalfOpenMax
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.advance() == Open {
		return ErrCircuitOpen
	}
	return nil
}

// Record feeds a call outcome into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		switch b.state {
		case HalfOpen:
			b.successes++
			if b.successes >= b.cfg.HalfOpenMax {
				b.set(Closed)
			}
		case Closed:
			b.failures = 0
		}
		return
	}

	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	case HalfOpen:
		b.trip()
	}
}

// State returns the current state, moving OPEN to HALF_OPEN once the reset
// timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.advance()
}

// Trips returns how many times the breaker has opened.
func (b *Breaker) Trips() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(Closed)
}

// advance must be called with mu held.
func (b *Breaker) advance() State {
	if b.state == Open && b.now().Sub(b.trippedAt) >= b.cfg.ResetTimeout {
		b.set(HalfOpen)
	}
	return b.state
}

func (b *Breaker) trip() {
	b.set(Open)
	b.trippedAt = b.now()
	b.trips++
}

func (b *Breaker) set(s State) {
	b.state = s
	b.failures = 0
	b.successes = 0
	metrics.StoreBreakerState.Set(float64(s))
}

// ═══════════════════════════════════════════════════════════════════════════
// Guarded Store
// ═══════════════════════════════════════════════════════════════════════════

// Store wraps a StatsStore so that a failing backend is short-circuited
// instead of holding every action for the full persist timeout.
type Store struct {
	inner   domain.StatsStore
	breaker *Breaker
}

// leaderboardStore is returned by Guard when the inner store can rank users.
type leaderboardStore struct {
	*Store
	lb domain.Leaderboard
}

// Guard wraps inner with a breaker. The result implements domain.Leaderboard
// exactly when inner does.
func Guard(inner domain.StatsStore, b *Breaker) domain.StatsStore {
	s := &Store{inner: inner, breaker: b}
	if lb, ok := inner.(domain.Leaderboard); ok {
		return &leaderboardStore{Store: s, lb: lb}
	}
	return s
}

// counts reports whether err should count against the backend.
func counts(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, domain.ErrStatsNotFound) &&
		!errors.Is(err, domain.ErrStatsConflict) &&
		!errors.Is(err, context.Canceled)
}

func (s *Store) record(err error) {
	if counts(err) {
		s.breaker.Record(err)
	} else {
		s.breaker.Record(nil)
	}
}

func (s *Store) Load(ctx context.Context, userID string) (domain.UserStats, int64, error) {
	if err := s.breaker.Allow(); err != nil {
		return domain.UserStats{}, 0, fmt.Errorf("load %s: %w", userID, err)
	}
	stats, version, err := s.inner.Load(ctx, userID)
	s.record(err)
	return stats, version, err
}

func (s *Store) Save(ctx context.Context, stats domain.UserStats, expectedVersion int64) (int64, error) {
	if err := s.breaker.Allow(); err != nil {
		return 0, fmt.Errorf("save %s: %w", stats.UserID, err)
	}
	version, err := s.inner.Save(ctx, stats, expectedVersion)
	s.record(err)
	return version, err
}

// Ping always reaches the backend, and reports unhealthy while the breaker
// is OPEN even if the backend answers.
func (s *Store) Ping(ctx context.Context) error {
	err := s.inner.Ping(ctx)
	if err != nil {
		return err
	}
	if s.breaker.State() == Open {
		return fmt.Errorf("store reachable but %w", ErrCircuitOpen)
	}
	return nil
}

func (s *Store) Close() error {
	return s.inner.Close()
}

// Breaker exposes the wrapped breaker for status reporting.
func (s *Store) Breaker() *Breaker {
	return s.breaker
}

func (s *leaderboardStore) TopByXP(ctx context.Context, limit int) ([]domain.UserStats, error) {
	if err := s.breaker.Allow(); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	top, err := s.lb.TopByXP(ctx, limit)
	s.record(err)
	return top, err
}
