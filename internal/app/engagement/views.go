package engagement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hotelops/staffxp/internal/domain"
)

// ErrLeaderboardUnsupported is returned when the store cannot rank users.
var ErrLeaderboardUnsupported = errors.New("stats store does not support leaderboards")

// Summary is the profile header: stats with their level and rank projections.
type Summary struct {
	Stats          domain.UserStats     `json:"stats"`
	Level          domain.LevelProgress `json:"level"`
	Rank           domain.RankProgress  `json:"rank"`
	BadgesUnlocked int                  `json:"badgesUnlocked"`
	BadgesTotal    int                  `json:"badgesTotal"`
}

// ChallengeView is the catalog of active challenges plus one user's progress.
type ChallengeView struct {
	Challenges []domain.ChallengeStatus `json:"challenges"`
	Progress   map[string]int           `json:"progress"`
}

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	Position int    `json:"position"`
	UserID   string `json:"userId"`
	TotalXP  int64  `json:"totalXP"`
	Level    int    `json:"level"`
	Rank     string `json:"rank"`
	Badges   int    `json:"badges"`
}

// CatalogView is the public rule set served to clients.
type CatalogView struct {
	XP         map[domain.ActionKind]int64 `json:"xp"`
	Levels     []domain.Level              `json:"levels"`
	Ranks      []domain.Rank               `json:"ranks"`
	Badges     []domain.Badge              `json:"badges"`
	BadgeCount int                         `json:"badgeCount"`
	Challenges []domain.Challenge          `json:"challenges"`
}

// ─── Read API ───────────────────────────────────────────────────────────────
// Pure projections over the stored document; none of these write.

// GetStats returns the user's stats. Unknown users get a zeroed record.
func (e *Engine) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.UserStats{}, domain.ErrUserIDRequired
	}
	stats, _, err := e.load(ctx, userID)
	return stats, err
}

// GetSummary returns stats with level, rank and badge counts.
func (e *Engine) GetSummary(ctx context.Context, userID string) (Summary, error) {
	stats, err := e.GetStats(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Stats:          stats,
		Level:          e.levels.For(stats.TotalXP),
		Rank:           e.ranks.For(stats.TotalXP),
		BadgesUnlocked: len(stats.Badges),
		BadgesTotal:    e.badges.AvailableCount(),
	}, nil
}

// GetLevel projects the user's XP onto the level table.
func (e *Engine) GetLevel(ctx context.Context, userID string) (domain.LevelProgress, error) {
	stats, err := e.GetStats(ctx, userID)
	if err != nil {
		return domain.LevelProgress{}, err
	}
	return e.levels.For(stats.TotalXP), nil
}

// GetRank projects the user's points onto the rank table.
func (e *Engine) GetRank(ctx context.Context, userID string) (domain.RankProgress, error) {
	stats, err := e.GetStats(ctx, userID)
	if err != nil {
		return domain.RankProgress{}, err
	}
	return e.ranks.For(stats.TotalXP), nil
}

// GetBadges returns the gallery for a user: every visible badge, plus hidden
// badges the user has already unlocked.
func (e *Engine) GetBadges(ctx context.Context, userID string) ([]domain.BadgeStatus, error) {
	stats, err := e.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.gallery(stats, e.badges.Catalog()), nil
}

// GetBadgesByCategory is GetBadges restricted to one category.
func (e *Engine) GetBadgesByCategory(ctx context.Context, userID string, cat domain.BadgeCategory) ([]domain.BadgeStatus, error) {
	if !cat.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, cat)
	}
	stats, err := e.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	var inCat []domain.Badge
	for _, b := range e.badges.Catalog() {
		if b.Category == cat {
			inCat = append(inCat, b)
		}
	}
	return e.gallery(stats, inCat), nil
}

func (e *Engine) gallery(stats domain.UserStats, badges []domain.Badge) []domain.BadgeStatus {
	out := make([]domain.BadgeStatus, 0, len(badges))
	for _, b := range badges {
		unlocked := stats.HasBadge(b.ID)
		if b.Hidden && !unlocked {
			continue
		}
		bs := domain.BadgeStatus{Badge: b, Unlocked: unlocked}
		if at, ok := stats.BadgeUnlockedAt[b.ID]; ok {
			at := at
			bs.UnlockedAt = &at
		}
		out = append(out, bs)
	}
	return out
}

// GetChallenges returns the active challenges with the user's progress.
func (e *Engine) GetChallenges(ctx context.Context, userID string) (ChallengeView, error) {
	stats, err := e.GetStats(ctx, userID)
	if err != nil {
		return ChallengeView{}, err
	}
	active := e.challenges.Active(e.opts.Now())
	return ChallengeView{
		Challenges: e.challenges.Statuses(active, stats),
		Progress:   e.challenges.Progress(active, stats),
	}, nil
}

// Leaderboard returns the top users by XP.
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	lb, ok := e.store.(domain.Leaderboard)
	if !ok {
		return nil, ErrLeaderboardUnsupported
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	qctx, cancel := context.WithTimeout(ctx, e.opts.PersistTimeout)
	defer cancel()
	top, err := lb.TopByXP(qctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: leaderboard: %w", domain.ErrPersistence, err)
	}

	// Stores order by XP; ties break by user id so output is stable.
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].TotalXP != top[j].TotalXP {
			return top[i].TotalXP > top[j].TotalXP
		}
		return top[i].UserID < top[j].UserID
	})

	out := make([]LeaderboardEntry, 0, len(top))
	for i, s := range top {
		out = append(out, LeaderboardEntry{
			Position: i + 1,
			UserID:   s.UserID,
			TotalXP:  s.TotalXP,
			Level:    e.levels.For(s.TotalXP).Level,
			Rank:     e.ranks.For(s.TotalXP).Rank.Name,
			Badges:   len(s.Badges),
		})
	}
	return out, nil
}

// Badge looks up a catalog badge by id.
func (e *Engine) Badge(id string) (domain.Badge, error) {
	return e.badges.Get(id)
}

// Catalog returns the rule set the engine was built with.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// CatalogView returns the public rule set: visible badges and active challenges.
func (e *Engine) CatalogView() CatalogView {
	xp := make(map[domain.ActionKind]int64, len(e.catalog.XP))
	for k, v := range e.catalog.XP {
		xp[k] = v
	}
	return CatalogView{
		XP:         xp,
		Levels:     e.levels.Levels(),
		Ranks:      e.ranks.Ranks(),
		Badges:     nonNil(e.badges.Visible()),
		BadgeCount: e.badges.AvailableCount(),
		Challenges: nonNil(e.challenges.Active(e.opts.Now())),
	}
}

// Ping checks that the store answers within the persist timeout.
func (e *Engine) Ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, e.opts.PersistTimeout)
	defer cancel()
	return e.store.Ping(pctx)
}
