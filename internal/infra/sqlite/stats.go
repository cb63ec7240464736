package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hotelops/staffxp/internal/domain"
)

// ─── User Stats ─────────────────────────────────────────────────────────────

// Load returns the user's document and its version.
func (d *DB) Load(ctx context.Context, userID string) (domain.UserStats, int64, error) {
	var doc string
	var version int64
	err := d.db.QueryRowContext(ctx,
		`SELECT doc, version FROM user_stats WHERE user_id = ?`, userID,
	).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserStats{}, 0, domain.ErrStatsNotFound
	}
	if err != nil {
		return domain.UserStats{}, 0, fmt.Errorf("query user stats: %w", err)
	}

	var stats domain.UserStats
	if err := json.Unmarshal([]byte(doc), &stats); err != nil {
		return domain.UserStats{}, 0, fmt.Errorf("decode user stats %s: %w", userID, err)
	}
	return stats, version, nil
}

// Save writes the document if the stored version equals expectedVersion.
// expectedVersion 0 means the user must not exist yet.
func (d *DB) Save(ctx context.Context, stats domain.UserStats, expectedVersion int64) (int64, error) {
	if stats.UserID == "" {
		return 0, domain.ErrUserIDRequired
	}
	doc, err := json.Marshal(stats)
	if err != nil {
		return 0, fmt.Errorf("encode user stats: %w", err)
	}
	now := time.Now().Unix()

	var result sql.Result
	if expectedVersion == 0 {
		result, err = d.db.ExecContext(ctx,
			`INSERT INTO user_stats (user_id, doc, version, total_xp, updated_at)
			 VALUES (?, ?, 1, ?, ?)
			 ON CONFLICT(user_id) DO NOTHING`,
			stats.UserID, string(doc), stats.TotalXP, now,
		)
	} else {
		result, err = d.db.ExecContext(ctx,
			`UPDATE user_stats SET doc = ?, version = version + 1, total_xp = ?, updated_at = ?
			 WHERE user_id = ? AND version = ?`,
			string(doc), stats.TotalXP, now, stats.UserID, expectedVersion,
		)
	}
	if err != nil {
		return 0, fmt.Errorf("save user stats: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("save user stats: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: user %s at version %d", domain.ErrStatsConflict, stats.UserID, expectedVersion)
	}
	return expectedVersion + 1, nil
}

// TopByXP returns up to limit documents ordered by XP, highest first.
func (d *DB) TopByXP(ctx context.Context, limit int) ([]domain.UserStats, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT doc FROM user_stats ORDER BY total_xp DESC, user_id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []domain.UserStats
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var s domain.UserStats
		if err := json.Unmarshal([]byte(doc), &s); err != nil {
			return nil, fmt.Errorf("decode leaderboard row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
