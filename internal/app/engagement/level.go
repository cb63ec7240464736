package engagement

import (
	"math"
	"sort"

	"github.com/hotelops/staffxp/internal/domain"
)

// LevelCalculator maps cumulative XP onto the level table.
type LevelCalculator struct {
	levels []domain.Level // strictly increasing MinXP, first is 0
}

// NewLevelCalculator creates a calculator over a validated level table.
func NewLevelCalculator(levels []domain.Level) *LevelCalculator {
	return &LevelCalculator{levels: append([]domain.Level(nil), levels...)}
}

// DefaultLevels returns the built-in ten-step hotel career ladder.
func DefaultLevels() []domain.Level {
	return []domain.Level{
		{Level: 1, MinXP: 0, Name: "Trainee", BadgeGlyph: "🌱", ColorToken: "slate"},
		{Level: 2, MinXP: 100, Name: "Attendant", BadgeGlyph: "🛎️", ColorToken: "gray"},
		{Level: 3, MinXP: 300, Name: "Associate", BadgeGlyph: "🔑", ColorToken: "green"},
		{Level: 4, MinXP: 600, Name: "Specialist", BadgeGlyph: "🧰", ColorToken: "teal"},
		{Level: 5, MinXP: 1000, Name: "Senior Specialist", BadgeGlyph: "⭐", ColorToken: "blue"},
		{Level: 6, MinXP: 1500, Name: "Supervisor", BadgeGlyph: "📋", ColorToken: "indigo"},
		{Level: 7, MinXP: 2200, Name: "Manager", BadgeGlyph: "🏨", ColorToken: "violet"},
		{Level: 8, MinXP: 3000, Name: "Senior Manager", BadgeGlyph: "🎖️", ColorToken: "purple"},
		{Level: 9, MinXP: 4000, Name: "Director", BadgeGlyph: "🏆", ColorToken: "amber"},
		{Level: 10, MinXP: 5500, Name: "Hotel Legend", BadgeGlyph: "👑", ColorToken: "gold"},
	}
}

// For returns the level and progress toward the next one.
// At the top level progress is 0 and there is no next threshold.
func (c *LevelCalculator) For(totalXP int64) domain.LevelProgress {
	if totalXP < 0 {
		totalXP = 0
	}
	// First index whose MinXP exceeds xp; the level is the one before it.
	i := sort.Search(len(c.levels), func(i int) bool { return c.levels[i].MinXP > totalXP }) - 1
	if i < 0 {
		i = 0
	}
	cur := c.levels[i]
	lp := domain.LevelProgress{
		Level:   cur.Level,
		Info:    cur,
		TotalXP: totalXP,
	}
	if i == len(c.levels)-1 {
		return lp
	}
	next := c.levels[i+1]
	lp.NextLevelXP = next.MinXP
	lp.XPToNext = next.MinXP - totalXP
	lp.Progress = percent(float64(totalXP-cur.MinXP), float64(next.MinXP-cur.MinXP))
	return lp
}

// Levels returns a copy of the table.
func (c *LevelCalculator) Levels() []domain.Level {
	return append([]domain.Level(nil), c.levels...)
}

// Max returns the highest level.
func (c *LevelCalculator) Max() domain.Level {
	return c.levels[len(c.levels)-1]
}

// percent returns round(num/den*100) clamped to [0,100], ties rounding up.
func percent(num, den float64) int {
	if den <= 0 {
		return 0
	}
	p := int(math.Floor(num/den*100 + 0.5))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
