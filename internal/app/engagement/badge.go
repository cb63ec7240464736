package engagement

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/hotelops/staffxp/internal/domain"
	"github.com/hotelops/staffxp/internal/infra/metrics"
)

// BadgeEvaluator holds the badge catalog and decides which badges a stats
// snapshot has earned. Each badge is evaluated in isolation: a condition that
// errors or panics counts as not satisfied for that badge only.
type BadgeEvaluator struct {
	badges []domain.Badge
	index  map[string]int
	log    zerolog.Logger
}

// NewBadgeEvaluator creates an evaluator over a validated catalog.
func NewBadgeEvaluator(badges []domain.Badge, log zerolog.Logger) *BadgeEvaluator {
	idx := make(map[string]int, len(badges))
	for i, b := range badges {
		idx[b.ID] = i
	}
	return &BadgeEvaluator{
		badges: append([]domain.Badge(nil), badges...),
		index:  idx,
		log:    log.With().Str("component", "badges").Logger(),
	}
}

// Unlocked returns the ids of every badge whose condition holds, hidden ones included.
func (e *BadgeEvaluator) Unlocked(stats domain.UserStats) []string {
	var ids []string
	for _, b := range e.badges {
		if e.satisfied(b, stats) {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// Diff returns the badges next has earned that are not in already, in
// catalog order. A nil already means prev.Badges.
func (e *BadgeEvaluator) Diff(prev, next domain.UserStats, already []string) []domain.Badge {
	if already == nil {
		already = prev.Badges
	}
	have := make(map[string]bool, len(already))
	for _, id := range already {
		have[id] = true
	}

	var out []domain.Badge
	for _, b := range e.badges {
		if have[b.ID] {
			continue
		}
		if e.satisfied(b, next) {
			out = append(out, b)
		}
	}
	return out
}

// satisfied evaluates one badge, converting errors and panics to false.
func (e *BadgeEvaluator) satisfied(b domain.Badge, stats domain.UserStats) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.fail(b, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	ok, err := b.Condition.Eval(stats)
	if err != nil {
		e.fail(b, err)
		return false
	}
	return ok
}

func (e *BadgeEvaluator) fail(b domain.Badge, err error) {
	metrics.PredicateFailures.WithLabelValues(b.ID).Inc()
	e.log.Warn().Err(err).Str("badge", b.ID).Msg("badge condition failed, treating as locked")
}

// Catalog returns every badge, hidden ones included.
func (e *BadgeEvaluator) Catalog() []domain.Badge {
	return slices.Clone(e.badges)
}

// Visible returns the gallery badges (hidden ones excluded).
func (e *BadgeEvaluator) Visible() []domain.Badge {
	var out []domain.Badge
	for _, b := range e.badges {
		if !b.Hidden {
			out = append(out, b)
		}
	}
	return out
}

// ByCategory returns the visible badges of one category.
func (e *BadgeEvaluator) ByCategory(cat domain.BadgeCategory) []domain.Badge {
	var out []domain.Badge
	for _, b := range e.badges {
		if !b.Hidden && b.Category == cat {
			out = append(out, b)
		}
	}
	return out
}

// AvailableCount is the "x of N" denominator shown in the gallery.
func (e *BadgeEvaluator) AvailableCount() int {
	n := 0
	for _, b := range e.badges {
		if !b.Hidden {
			n++
		}
	}
	return n
}

// Get looks up a badge by id.
func (e *BadgeEvaluator) Get(id string) (domain.Badge, error) {
	i, ok := e.index[id]
	if !ok {
		return domain.Badge{}, fmt.Errorf("%w: %s", domain.ErrBadgeNotFound, id)
	}
	return e.badges[i], nil
}
