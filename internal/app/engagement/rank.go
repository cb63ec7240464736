package engagement

import (
	"sort"

	"github.com/hotelops/staffxp/internal/domain"
)

// RankCalculator maps points onto named tiers. Points are total XP.
type RankCalculator struct {
	ranks []domain.Rank
}

// NewRankCalculator creates a calculator over a validated rank table.
func NewRankCalculator(ranks []domain.Rank) *RankCalculator {
	return &RankCalculator{ranks: append([]domain.Rank(nil), ranks...)}
}

// DefaultRanks returns the built-in rank tiers.
func DefaultRanks() []domain.Rank {
	return []domain.Rank{
		{Name: "Bronze", MinPoints: 0, Icon: "🥉"},
		{Name: "Silver", MinPoints: 500, Icon: "🥈"},
		{Name: "Gold", MinPoints: 1500, Icon: "🥇"},
		{Name: "Platinum", MinPoints: 3500, Icon: "💠"},
		{Name: "Diamond", MinPoints: 7000, Icon: "💎"},
	}
}

// For returns the rank for points and the distance to the next one.
func (c *RankCalculator) For(points int64) domain.RankProgress {
	if points < 0 {
		points = 0
	}
	i := sort.Search(len(c.ranks), func(i int) bool { return c.ranks[i].MinPoints > points }) - 1
	if i < 0 {
		i = 0
	}
	rp := domain.RankProgress{Rank: c.ranks[i], Points: points}

	if i == len(c.ranks)-1 {
		rp.NextRank = domain.MaxRankName
		rp.Progress = 100
		return rp
	}
	next := c.ranks[i+1]
	rp.NextRank = next.Name
	rp.PointsNeeded = max(next.MinPoints-points, 0)
	rp.Progress = percent(float64(points-rp.Rank.MinPoints), float64(next.MinPoints-rp.Rank.MinPoints))
	return rp
}

// Ranks returns a copy of the table.
func (c *RankCalculator) Ranks() []domain.Rank {
	return append([]domain.Rank(nil), c.ranks...)
}
