package engagement

import (
	"fmt"
	"math"
	"time"

	"github.com/hotelops/staffxp/internal/domain"
)

// StatAccumulator folds actions into UserStats.
// It is pure: Apply never mutates its input and holds no per-user state.
type StatAccumulator struct {
	xp  map[domain.ActionKind]int64
	loc *time.Location
}

// NewStatAccumulator creates an accumulator over an XP table.
// Streak days are computed in loc (UTC when nil).
func NewStatAccumulator(xp map[domain.ActionKind]int64, loc *time.Location) *StatAccumulator {
	if loc == nil {
		loc = time.UTC
	}
	table := make(map[domain.ActionKind]int64, len(xp))
	for k, v := range xp {
		table[k] = v
	}
	return &StatAccumulator{xp: table, loc: loc}
}

// BaseXP returns the XP an action kind is worth.
func (a *StatAccumulator) BaseXP(kind domain.ActionKind) (int64, bool) {
	xp, ok := a.xp[kind]
	return xp, ok
}

// Location is the time zone used for streak days.
func (a *StatAccumulator) Location() *time.Location { return a.loc }

// Validate checks an action without applying it.
func (a *StatAccumulator) Validate(action domain.Action) error {
	if _, ok := a.xp[action.Kind]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownAction, string(action.Kind))
	}
	if action.Kind == domain.ActionSubmitQualityScore {
		if action.Score == nil {
			return fmt.Errorf("%w: score is required", domain.ErrInvalidScore)
		}
		if sc := *action.Score; math.IsNaN(sc) || sc < 0 || sc > 100 {
			return fmt.Errorf("%w: got %v", domain.ErrInvalidScore, sc)
		}
	}
	return nil
}

// Apply returns stats with the action folded in, and the base XP gained.
// On error the returned stats equal the input.
func (a *StatAccumulator) Apply(stats domain.UserStats, action domain.Action) (domain.UserStats, int64, error) {
	if err := a.Validate(action); err != nil {
		return stats, 0, err
	}

	next := stats.Clone()
	if counter := counterFor(&next, action.Kind); counter != nil {
		*counter++
	}
	if action.Kind == domain.ActionSubmitQualityScore {
		n := float64(next.QualitySubmissionCount)
		next.AvgQualityScore = (next.AvgQualityScore*n + *action.Score) / (n + 1)
		next.QualitySubmissionCount++
	}

	at := action.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	advanceStreak(&next, at, a.loc)

	gained := a.xp[action.Kind]
	next.TotalXP += gained
	return next, gained, nil
}

// AwardXP adds XP without touching counters or the streak.
// Non-positive amounts are ignored so XP never decreases.
func (a *StatAccumulator) AwardXP(stats domain.UserStats, amount int64) domain.UserStats {
	next := stats.Clone()
	if amount > 0 {
		next.TotalXP += amount
	}
	return next
}
