package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// StatsStore is the per-user document store behind the engine.
//
// Load returns ErrStatsNotFound for users that were never saved. Save writes
// the document only if the stored version still equals expectedVersion (0 for
// a new user) and returns the new version; a mismatch yields ErrStatsConflict.
type StatsStore interface {
	Load(ctx context.Context, userID string) (UserStats, int64, error)
	Save(ctx context.Context, stats UserStats, expectedVersion int64) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Leaderboard is implemented by stores that can rank users by XP.
type Leaderboard interface {
	TopByXP(ctx context.Context, limit int) ([]UserStats, error)
}
