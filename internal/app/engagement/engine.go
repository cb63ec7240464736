package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hotelops/staffxp/internal/domain"
	"github.com/hotelops/staffxp/internal/infra/metrics"
)

// Options tunes the Engine. Zero values fall back to DefaultOptions.
type Options struct {
	PersistTimeout   time.Duration    // bound on each store call
	MaxRetries       int              // reloads after a version conflict
	Location         *time.Location   // time zone for streak days
	WeeklyChallenges int              // 0 = every catalog challenge is active
	Now              func() time.Time // clock, for tests
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		PersistTimeout: 5 * time.Second,
		MaxRetries:     3,
		Location:       time.UTC,
		Now:            time.Now,
	}
}

// Engine runs actions through the accumulator, badge evaluator and challenge
// tracker, and persists the result. It is safe for concurrent use; actions
// for the same user are serialized.
type Engine struct {
	store      domain.StatsStore
	catalog    Catalog
	stats      *StatAccumulator
	levels     *LevelCalculator
	ranks      *RankCalculator
	badges     *BadgeEvaluator
	challenges *ChallengeTracker
	locks      *userLocks
	opts       Options
	log        zerolog.Logger
}

// NewEngine validates the catalog and wires the calculators.
func NewEngine(store domain.StatsStore, cat Catalog, opts Options, log zerolog.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("engine: stats store is required")
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	def := DefaultOptions()
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = def.PersistTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}

	log = log.With().Str("component", "engine").Logger()
	return &Engine{
		store:      store,
		catalog:    cat,
		stats:      NewStatAccumulator(cat.XP, opts.Location),
		levels:     NewLevelCalculator(cat.Levels),
		ranks:      NewRankCalculator(cat.Ranks),
		badges:     NewBadgeEvaluator(cat.Badges, log),
		challenges: NewChallengeTracker(cat.Challenges, opts.WeeklyChallenges),
		locks:      newUserLocks(),
		opts:       opts,
		log:        log,
	}, nil
}

// PerformAction applies one action for userID and persists the outcome.
//
// Validation errors are returned before any I/O. A repeated action ID is
// reported with Duplicate set and nothing written. Store failures wrap
// domain.ErrPersistence and leave the stored document untouched.
func (e *Engine) PerformAction(ctx context.Context, userID string, action domain.Action) (domain.ActionResult, error) {
	start := time.Now()
	defer func() { metrics.ActionDuration.Observe(time.Since(start).Seconds()) }()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ActionResult{}, domain.ErrUserIDRequired
	}
	if err := e.stats.Validate(action); err != nil {
		metrics.ActionsTotal.WithLabelValues(string(action.Kind), "rejected").Inc()
		return domain.ActionResult{}, err
	}
	if action.OccurredAt.IsZero() {
		action.OccurredAt = e.opts.Now()
	}

	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return domain.ActionResult{}, fmt.Errorf("lock user %s: %w", userID, err)
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		res, err := e.attempt(ctx, userID, action)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, domain.ErrStatsConflict) {
			metrics.StoreConflicts.Inc()
			if attempt < e.opts.MaxRetries {
				e.log.Debug().Str("user", userID).Int("attempt", attempt+1).Msg("version conflict, retrying")
				continue
			}
			err = fmt.Errorf("%w: %w after %d attempts", domain.ErrPersistence, err, attempt+1)
		}
		metrics.ActionsTotal.WithLabelValues(string(action.Kind), "failed").Inc()
		e.log.Error().Err(err).Str("user", userID).Str("kind", string(action.Kind)).Msg("action not committed")
		return domain.ActionResult{}, err
	}
}

// attempt is one load-compute-save cycle.
func (e *Engine) attempt(ctx context.Context, userID string, action domain.Action) (domain.ActionResult, error) {
	prev, version, err := e.load(ctx, userID)
	if err != nil {
		return domain.ActionResult{}, err
	}

	if prev.SeenAction(action.ID) {
		metrics.ActionsTotal.WithLabelValues(string(action.Kind), "duplicate").Inc()
		return domain.ActionResult{
			ActionID:  action.ID,
			UserID:    userID,
			Kind:      action.Kind,
			Stats:     prev,
			Level:     e.levels.For(prev.TotalXP),
			Rank:      e.ranks.For(prev.TotalXP),
			Duplicate: true,
		}, nil
	}

	res, err := e.compute(prev, action)
	if err != nil {
		return domain.ActionResult{}, err
	}

	saveCtx, cancel := context.WithTimeout(ctx, e.opts.PersistTimeout)
	defer cancel()
	if _, err := e.store.Save(saveCtx, res.Stats, version); err != nil {
		if errors.Is(err, domain.ErrStatsConflict) {
			return domain.ActionResult{}, err
		}
		metrics.StoreErrors.WithLabelValues("save").Inc()
		return domain.ActionResult{}, fmt.Errorf("%w: save %s: %w", domain.ErrPersistence, userID, err)
	}

	e.record(res)
	return res, nil
}

// compute derives the post-action document without touching the store.
// Challenge completions are judged on the stats before any reward XP; the
// rewards are then added in one pass, followed by a single badge re-check.
func (e *Engine) compute(prev domain.UserStats, action domain.Action) (domain.ActionResult, error) {
	now := e.opts.Now()
	active := e.challenges.Active(now)
	base := e.challenges.Enroll(active, prev, now)

	next, gained, err := e.stats.Apply(base, action)
	if err != nil {
		return domain.ActionResult{}, err
	}

	newBadges := e.badges.Diff(base, next, next.Badges)
	for _, b := range newBadges {
		next.AddBadge(b.ID, now)
	}

	completed := e.challenges.Completed(active, base, next)

	var challengeXP int64
	next.CompletedChallenges = pruneCompleted(next.CompletedChallenges, now)
	for _, c := range completed {
		challengeXP += int64(c.XPReward)
		next.CompletedChallenges = append(next.CompletedChallenges, c.ID)
	}

	rewarded := e.stats.AwardXP(next, challengeXP)
	more := e.badges.Diff(next, rewarded, rewarded.Badges)
	for _, b := range more {
		rewarded.AddBadge(b.ID, now)
	}
	newBadges = append(newBadges, more...)
	next = rewarded

	next.UserID = prev.UserID
	next.RememberAction(action.ID)
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now

	actionID := action.ID
	if actionID == "" {
		actionID = uuid.NewString()
	}

	prevLevel, prevRank := e.levels.For(prev.TotalXP), e.ranks.For(prev.TotalXP)
	level, rank := e.levels.For(next.TotalXP), e.ranks.For(next.TotalXP)

	return domain.ActionResult{
		ActionID:            actionID,
		UserID:              next.UserID,
		Kind:                action.Kind,
		Stats:               next,
		XPGained:            gained + challengeXP,
		NewBadges:           nonNil(newBadges),
		CompletedChallenges: nonNil(completed),
		ChallengeXP:         challengeXP,
		Level:               level,
		LeveledUp:           level.Level > prevLevel.Level,
		Rank:                rank,
		RankedUp:            rank.Rank.MinPoints > prevRank.Rank.MinPoints,
	}, nil
}

// record updates metrics and logs notable events after a commit.
func (e *Engine) record(res domain.ActionResult) {
	metrics.ActionsTotal.WithLabelValues(string(res.Kind), "applied").Inc()
	metrics.XPAwarded.WithLabelValues("action").Add(float64(res.XPGained - res.ChallengeXP))
	if res.ChallengeXP > 0 {
		metrics.XPAwarded.WithLabelValues("challenge").Add(float64(res.ChallengeXP))
	}
	for _, b := range res.NewBadges {
		metrics.BadgesUnlocked.WithLabelValues(string(b.Category)).Inc()
		e.log.Info().Str("user", res.UserID).Str("badge", b.ID).Msg("badge unlocked")
	}
	for _, c := range res.CompletedChallenges {
		metrics.ChallengesCompleted.Inc()
		e.log.Info().Str("user", res.UserID).Str("challenge", c.ID).Int("xp", c.XPReward).Msg("challenge completed")
	}
	if res.LeveledUp {
		e.log.Info().Str("user", res.UserID).Int("level", res.Level.Level).Msg("level up")
	}
	e.log.Debug().
		Str("user", res.UserID).
		Str("kind", string(res.Kind)).
		Int64("xp", res.XPGained).
		Int64("total_xp", res.Stats.TotalXP).
		Msg("action applied")
}

// load reads a user's document under the persist timeout.
// Users without a document start from a zeroed record at version 0.
func (e *Engine) load(ctx context.Context, userID string) (domain.UserStats, int64, error) {
	loadCtx, cancel := context.WithTimeout(ctx, e.opts.PersistTimeout)
	defer cancel()

	stats, version, err := e.store.Load(loadCtx, userID)
	switch {
	case errors.Is(err, domain.ErrStatsNotFound):
		return domain.NewUserStats(userID), 0, nil
	case err != nil:
		metrics.StoreErrors.WithLabelValues("load").Inc()
		return domain.UserStats{}, 0, fmt.Errorf("%w: load %s: %w", domain.ErrPersistence, userID, err)
	}
	if stats.Badges == nil {
		stats.Badges = []string{}
	}
	return stats, version, nil
}

// pruneCompleted drops rotated challenge ids from past weeks.
// Ids without a week suffix are kept forever.
func pruneCompleted(ids []string, now time.Time) []string {
	suffix := weekSuffix(now)
	out := ids[:0:0]
	for _, id := range ids {
		if !isWeekly(id) || strings.HasSuffix(id, suffix) {
			out = append(out, id)
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
