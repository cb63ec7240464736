package engagement

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"strings"
	"time"

	"github.com/hotelops/staffxp/internal/domain"
)

// ChallengeTracker computes challenge progress and completions.
//
// With a weekly count of 0 every catalog challenge is active. Otherwise
// Active picks that many challenges per ISO week, deterministically, so every
// process serving the same week agrees on the selection.
type ChallengeTracker struct {
	pool        []domain.Challenge
	weeklyCount int
}

// NewChallengeTracker creates a tracker over a validated challenge pool.
func NewChallengeTracker(pool []domain.Challenge, weeklyCount int) *ChallengeTracker {
	if weeklyCount < 0 || weeklyCount >= len(pool) {
		weeklyCount = 0
	}
	return &ChallengeTracker{
		pool:        append([]domain.Challenge(nil), pool...),
		weeklyCount: weeklyCount,
	}
}

// DefaultChallenges returns the built-in challenge pool.
func DefaultChallenges() []domain.Challenge {
	return []domain.Challenge{
		{ID: "incident_sprint", Title: "Incident Sprint", Icon: "🚨", Field: domain.FieldIncidentsResolved,
			Target: 10, XPReward: 150, Description: "Resolve 10 incidents"},
		{ID: "fix_it_week", Title: "Fix-It Week", Icon: "🔧", Field: domain.FieldMaintenanceCompleted,
			Target: 8, XPReward: 120, Description: "Complete 8 maintenance requests"},
		{ID: "lost_and_found", Title: "Lost & Found Hero", Icon: "🧳", Field: domain.FieldLostItemsReturned,
			Target: 10, XPReward: 100, Description: "Return 10 lost items"},
		{ID: "quality_rounds", Title: "Quality Rounds", Icon: "📝", Field: domain.FieldQualitySubmissions,
			Target: 5, XPReward: 80, Description: "Submit 5 quality scores"},
		{ID: "steady_hand", Title: "Steady Hand", Icon: "🔥", Field: domain.FieldCurrentStreak,
			Target: 5, XPReward: 100, Description: "Keep a 5-day activity streak"},
		{ID: "procedure_drill", Title: "Procedure Drill", Icon: "📘", Field: domain.FieldProceduresCompleted,
			Target: 10, XPReward: 80, Description: "Complete 10 procedures"},
	}
}

// Pool returns every challenge the tracker can schedule.
func (t *ChallengeTracker) Pool() []domain.Challenge {
	return append([]domain.Challenge(nil), t.pool...)
}

// Active returns the challenges running at now.
func (t *ChallengeTracker) Active(now time.Time) []domain.Challenge {
	if t.weeklyCount == 0 {
		return t.Pool()
	}

	start := weekStart(now)
	week := isoWeek(start)
	expiry := nextMonday(now)

	var out []domain.Challenge
	for _, c := range pickWeekly(t.pool, t.weeklyCount, start) {
		c.ID = c.ID + "@" + week
		c.ExpiresAt = expiry
		out = append(out, c)
	}
	return out
}

// Enroll records, for each rotated challenge in challenges that the user has
// no baseline for yet, the current field value as that week's starting
// point, and drops baselines from past weeks. stats is not modified; the
// result is a copy when anything changed.
func (t *ChallengeTracker) Enroll(challenges []domain.Challenge, stats domain.UserStats, now time.Time) domain.UserStats {
	suffix := weekSuffix(now)
	changed := false
	for id := range stats.ChallengeBaselines {
		if !strings.HasSuffix(id, suffix) {
			changed = true
			break
		}
	}
	for _, c := range challenges {
		if !isWeekly(c.ID) {
			continue
		}
		if _, ok := stats.ChallengeBaselines[c.ID]; !ok {
			changed = true
			break
		}
	}
	if !changed {
		return stats
	}

	out := stats.Clone()
	for id := range out.ChallengeBaselines {
		if !strings.HasSuffix(id, suffix) {
			delete(out.ChallengeBaselines, id)
		}
	}
	for _, c := range challenges {
		if !isWeekly(c.ID) {
			continue
		}
		if _, ok := out.ChallengeBaselines[c.ID]; ok {
			continue
		}
		v, err := c.Field.Of(stats)
		if err != nil {
			continue
		}
		if out.ChallengeBaselines == nil {
			out.ChallengeBaselines = make(map[string]float64)
		}
		out.ChallengeBaselines[c.ID] = v
	}
	if len(out.ChallengeBaselines) == 0 {
		out.ChallengeBaselines = nil
	}
	return out
}

// Progress maps each challenge id to 0..100, rounding half up.
func (t *ChallengeTracker) Progress(challenges []domain.Challenge, stats domain.UserStats) map[string]int {
	out := make(map[string]int, len(challenges))
	for _, c := range challenges {
		out[c.ID] = challengeProgress(c, stats)
	}
	return out
}

// Statuses pairs each challenge with its progress and completion flag.
func (t *ChallengeTracker) Statuses(challenges []domain.Challenge, stats domain.UserStats) []domain.ChallengeStatus {
	out := make([]domain.ChallengeStatus, 0, len(challenges))
	for _, c := range challenges {
		out = append(out, domain.ChallengeStatus{
			Challenge: c,
			Progress:  challengeProgress(c, stats),
			Completed: stats.HasCompletedChallenge(c.ID) || met(c, stats),
		})
	}
	return out
}

// Completed returns challenges that next meets, prev did not, and that were
// never rewarded. Callers pass the snapshot taken before any reward XP so a
// reward can never complete a challenge by itself; the catalog therefore
// rejects challenges on fields that reward XP moves.
func (t *ChallengeTracker) Completed(challenges []domain.Challenge, prev, next domain.UserStats) []domain.Challenge {
	var out []domain.Challenge
	for _, c := range challenges {
		if next.HasCompletedChallenge(c.ID) {
			continue
		}
		if met(c, next) && !met(c, prev) {
			out = append(out, c)
		}
	}
	return out
}

func met(c domain.Challenge, s domain.UserStats) bool {
	v, err := challengeValue(c, s)
	if err != nil {
		return false
	}
	cond := c.Condition()
	ok, err := cond.Op.Compare(v, cond.Value)
	return err == nil && ok
}

func challengeProgress(c domain.Challenge, s domain.UserStats) int {
	v, err := challengeValue(c, s)
	if err != nil || c.Target <= 0 {
		return 0
	}
	return percent(v, float64(c.Target))
}

// challengeValue is the field value counted toward c. Rotated challenges
// count from the week's baseline; before the user's first action of the
// week there is no baseline and nothing has been counted yet.
func challengeValue(c domain.Challenge, s domain.UserStats) (float64, error) {
	v, err := c.Field.Of(s)
	if err != nil || !isWeekly(c.ID) {
		return v, err
	}
	base, ok := s.ChallengeBaselines[c.ID]
	if !ok {
		return 0, nil
	}
	return v - base, nil
}

// isWeekly reports whether id belongs to a rotated weekly challenge.
func isWeekly(id string) bool {
	return strings.Contains(id, "@")
}

// weekSuffix is the id suffix of challenges rotated in for now's week.
func weekSuffix(now time.Time) string {
	return "@" + isoWeek(weekStart(now))
}

// pickWeekly shuffles a copy of pool with a seed derived from the week start
// and returns the first n, preferring distinct fields.
func pickWeekly(pool []domain.Challenge, n int, start time.Time) []domain.Challenge {
	sum := sha256.Sum256([]byte(start.Format(DateLayout)))
	r := rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(sum[:8]))))

	shuffled := append([]domain.Challenge(nil), pool...)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	// Unique fields first
	seen := make(map[domain.StatField]bool)
	picked := make(map[string]bool)
	var result []domain.Challenge
	for _, c := range shuffled {
		if len(result) >= n {
			break
		}
		if !seen[c.Field] {
			seen[c.Field] = true
			picked[c.ID] = true
			result = append(result, c)
		}
	}

	// If not enough unique fields, fill with any
	for _, c := range shuffled {
		if len(result) >= n {
			break
		}
		if !picked[c.ID] {
			picked[c.ID] = true
			result = append(result, c)
		}
	}
	return result
}
