package engagement_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hotelops/staffxp/internal/app/engagement"
	"github.com/hotelops/staffxp/internal/domain"
)

var nop = zerolog.New(io.Discard)

func score(v float64) *float64 { return &v }

func act(kind domain.ActionKind, at time.Time) domain.Action {
	return domain.Action{Kind: kind, OccurredAt: at}
}

func newAccumulator() *engagement.StatAccumulator {
	return engagement.NewStatAccumulator(engagement.DefaultXPTable(), time.UTC)
}

// ═══════════════════════════════════════════════════════════════════════════
// StatAccumulator Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestApply_CountersAndXP(t *testing.T) {
	acc := newAccumulator()
	day := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		kind    domain.ActionKind
		xp      int64
		counter func(domain.UserStats) int64
	}{
		{domain.ActionResolveIncident, 50, func(s domain.UserStats) int64 { return s.IncidentsResolved }},
		{domain.ActionCompleteMaintenance, 40, func(s domain.UserStats) int64 { return s.MaintenanceCompleted }},
		{domain.ActionReturnLostItem, 30, func(s domain.UserStats) int64 { return s.LostItemsReturned }},
		{domain.ActionCompleteWeeklyGoal, 100, func(s domain.UserStats) int64 { return s.WeeklyGoalsCompleted }},
		{domain.ActionCompleteProcedure, 15, func(s domain.UserStats) int64 { return s.ProceduresCompleted }},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			next, gained, err := acc.Apply(domain.NewUserStats("u1"), act(tt.kind, day))
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if gained != tt.xp {
				t.Errorf("expected %d XP, got %d", tt.xp, gained)
			}
			if next.TotalXP != tt.xp {
				t.Errorf("expected total %d, got %d", tt.xp, next.TotalXP)
			}
			if got := tt.counter(next); got != 1 {
				t.Errorf("expected counter 1, got %d", got)
			}
		})
	}
}

func TestApply_QualityAverage(t *testing.T) {
	acc := newAccumulator()
	day := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	s := domain.NewUserStats("u1")

	for _, sc := range []float64{80, 90} {
		var err error
		a := act(domain.ActionSubmitQualityScore, day)
		a.Score = score(sc)
		s, _, err = acc.Apply(s, a)
		if err != nil {
			t.Fatalf("apply %v: %v", sc, err)
		}
	}

	if s.AvgQualityScore != 85 {
		t.Errorf("expected avg 85, got %v", s.AvgQualityScore)
	}
	if s.QualitySubmissionCount != 2 {
		t.Errorf("expected 2 submissions, got %d", s.QualitySubmissionCount)
	}
	if s.TotalXP != 40 {
		t.Errorf("expected 40 XP, got %d", s.TotalXP)
	}
}

func TestApply_InvalidScore(t *testing.T) {
	acc := newAccumulator()
	for _, sc := range []*float64{nil, score(-1), score(100.5)} {
		a := act(domain.ActionSubmitQualityScore, time.Now())
		a.Score = sc
		before := domain.NewUserStats("u1")
		next, gained, err := acc.Apply(before, a)
		if !errors.Is(err, domain.ErrInvalidScore) {
			t.Errorf("expected ErrInvalidScore, got %v", err)
		}
		if gained != 0 || next.QualitySubmissionCount != 0 {
			t.Error("invalid score must not change stats")
		}
	}

	// Boundaries are valid
	for _, sc := range []float64{0, 100} {
		a := act(domain.ActionSubmitQualityScore, time.Now())
		a.Score = score(sc)
		if _, _, err := acc.Apply(domain.NewUserStats("u1"), a); err != nil {
			t.Errorf("score %v should be valid: %v", sc, err)
		}
	}
}

func TestApply_UnknownAction(t *testing.T) {
	acc := newAccumulator()
	_, _, err := acc.Apply(domain.NewUserStats("u1"), act("MOP_FLOOR", time.Now()))
	if !errors.Is(err, domain.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	acc := newAccumulator()
	in := domain.NewUserStats("u1")
	in.AddBadge("first_fix", time.Now())
	in.RememberAction("a1")

	next, _, err := acc.Apply(in, act(domain.ActionResolveIncident, time.Now()))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	next.Badges[0] = "mutated"
	next.RecentActionIDs[0] = "mutated"

	if in.IncidentsResolved != 0 || in.TotalXP != 0 {
		t.Error("input counters were mutated")
	}
	if in.Badges[0] != "first_fix" || in.RecentActionIDs[0] != "a1" {
		t.Error("input slices alias the result")
	}
}

func TestApply_NeverDecreases(t *testing.T) {
	acc := newAccumulator()
	s := domain.NewUserStats("u1")
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	kinds := domain.ActionKinds()
	for i := 0; i < 60; i++ {
		a := act(kinds[i%len(kinds)], base.Add(time.Duration(i)*7*time.Hour))
		if a.Kind == domain.ActionSubmitQualityScore {
			a.Score = score(float64(i % 101))
		}
		next, _, err := acc.Apply(s, a)
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		if next.TotalXP < s.TotalXP ||
			next.IncidentsResolved < s.IncidentsResolved ||
			next.MaintenanceCompleted < s.MaintenanceCompleted ||
			next.LostItemsReturned < s.LostItemsReturned ||
			next.QualitySubmissionCount < s.QualitySubmissionCount ||
			next.LongestStreak < s.LongestStreak {
			t.Fatalf("step %d decreased a monotonic field", i)
		}
		if next.AvgQualityScore < 0 || next.AvgQualityScore > 100 {
			t.Fatalf("step %d: avg out of range %v", i, next.AvgQualityScore)
		}
		s = next
	}
}

func TestAwardXP(t *testing.T) {
	acc := newAccumulator()
	s := domain.NewUserStats("u1")
	s = acc.AwardXP(s, 150)
	s = acc.AwardXP(s, -40)
	if s.TotalXP != 150 {
		t.Errorf("expected 150 XP, got %d", s.TotalXP)
	}
	if s.CurrentStreak != 0 || s.IncidentsResolved != 0 {
		t.Error("AwardXP must only touch XP")
	}
}

func TestParseActionKind(t *testing.T) {
	for _, in := range []string{"RESOLVE_INCIDENT", "resolve_incident", "resolve-incident", " Resolve_Incident "} {
		k, err := engagement.ParseActionKind(in)
		if err != nil || k != domain.ActionResolveIncident {
			t.Errorf("ParseActionKind(%q) = %q, %v", in, k, err)
		}
	}
	if _, err := engagement.ParseActionKind("nap"); !errors.Is(err, domain.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Tests
// ═══════════════════════════════════════════════════════════════════════════

func streakAfter(t *testing.T, acc *engagement.StatAccumulator, days ...time.Time) domain.UserStats {
	t.Helper()
	s := domain.NewUserStats("u1")
	for _, d := range days {
		var err error
		s, _, err = acc.Apply(s, act(domain.ActionCompleteProcedure, d))
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	return s
}

func TestStreak_FirstActivity(t *testing.T) {
	s := streakAfter(t, newAccumulator(), time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	if s.CurrentStreak != 1 || s.LongestStreak != 1 {
		t.Errorf("expected 1/1, got %d/%d", s.CurrentStreak, s.LongestStreak)
	}
	if s.LastActivityDate != "2025-07-01" {
		t.Errorf("expected last activity 2025-07-01, got %s", s.LastActivityDate)
	}
}

func TestStreak_ConsecutiveDays(t *testing.T) {
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	var days []time.Time
	for i := 0; i < 5; i++ {
		days = append(days, base.AddDate(0, 0, i))
	}
	s := streakAfter(t, newAccumulator(), days...)
	if s.CurrentStreak != 5 {
		t.Errorf("expected 5 consecutive, got %d", s.CurrentStreak)
	}
}

func TestStreak_SameDayIdempotent(t *testing.T) {
	day := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	s := streakAfter(t, newAccumulator(), day, day.Add(2*time.Hour), day.Add(10*time.Hour))
	if s.CurrentStreak != 1 {
		t.Errorf("expected 1 (same day), got %d", s.CurrentStreak)
	}
}

func TestStreak_GapResets(t *testing.T) {
	d := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	s := streakAfter(t, newAccumulator(), d, d.AddDate(0, 0, 1), d.AddDate(0, 0, 2), d.AddDate(0, 0, 4))
	if s.CurrentStreak != 1 {
		t.Errorf("expected streak reset to 1, got %d", s.CurrentStreak)
	}
	if s.LongestStreak != 3 {
		t.Errorf("expected longest preserved at 3, got %d", s.LongestStreak)
	}
}

func TestStreak_BackdatedActionKeepsStreak(t *testing.T) {
	d := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	s := streakAfter(t, newAccumulator(), d, d.AddDate(0, 0, 1), d.AddDate(0, 0, -5))
	if s.CurrentStreak != 2 {
		t.Errorf("expected streak 2 after backdated action, got %d", s.CurrentStreak)
	}
	if s.LastActivityDate != "2025-07-11" {
		t.Errorf("backdated action must not move last activity, got %s", s.LastActivityDate)
	}
}

func TestStreak_UsesConfiguredTimeZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	acc := engagement.NewStatAccumulator(engagement.DefaultXPTable(), tokyo)

	// 20:00 and 23:30 UTC on July 1 are July 2 05:00 and 08:30 in Tokyo
	s := streakAfter(t, acc,
		time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC), // July 1 08:00 JST
		time.Date(2025, 7, 1, 20, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 1, 23, 30, 0, 0, time.UTC),
	)
	if s.CurrentStreak != 2 {
		t.Errorf("expected 2-day streak in JST, got %d", s.CurrentStreak)
	}
	if s.LastActivityDate != "2025-07-02" {
		t.Errorf("expected JST date 2025-07-02, got %s", s.LastActivityDate)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Level & Rank Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestLevel_ZeroXP(t *testing.T) {
	lc := engagement.NewLevelCalculator(engagement.DefaultLevels())
	lp := lc.For(0)
	if lp.Level != 1 || lp.Progress != 0 {
		t.Errorf("expected level 1 at 0%%, got %d at %d%%", lp.Level, lp.Progress)
	}
	if lp.Info.Name != "Trainee" {
		t.Errorf("expected Trainee, got %s", lp.Info.Name)
	}
	if lp.XPToNext != 100 {
		t.Errorf("expected 100 XP to next, got %d", lp.XPToNext)
	}
}

func TestLevel_Thresholds(t *testing.T) {
	lc := engagement.NewLevelCalculator(engagement.DefaultLevels())
	tests := []struct {
		xp       int64
		level    int
		progress int
	}{
		{99, 1, 99},
		{100, 2, 0},
		{200, 2, 50},
		{300, 3, 0},
		{1250, 5, 50},
		{5499, 9, 100},
	}
	for _, tt := range tests {
		lp := lc.For(tt.xp)
		if lp.Level != tt.level || lp.Progress != tt.progress {
			t.Errorf("For(%d) = level %d %d%%, want level %d %d%%", tt.xp, lp.Level, lp.Progress, tt.level, tt.progress)
		}
	}
}

func TestLevel_TopLevel(t *testing.T) {
	lc := engagement.NewLevelCalculator(engagement.DefaultLevels())
	for _, xp := range []int64{5500, 1_000_000} {
		lp := lc.For(xp)
		if lp.Level != 10 {
			t.Errorf("expected level 10, got %d", lp.Level)
		}
		if lp.Progress != 0 || lp.XPToNext != 0 || lp.NextLevelXP != 0 {
			t.Errorf("top level should have no next threshold: %+v", lp)
		}
	}
}

func TestLevel_ProgressBounded(t *testing.T) {
	lc := engagement.NewLevelCalculator(engagement.DefaultLevels())
	prev := 0
	for xp := int64(-10); xp < 7000; xp += 7 {
		lp := lc.For(xp)
		if lp.Progress < 0 || lp.Progress > 100 {
			t.Fatalf("For(%d) progress %d out of range", xp, lp.Progress)
		}
		if lp.Level < prev {
			t.Fatalf("level decreased at %d XP", xp)
		}
		prev = lp.Level
	}
}

func TestRank_ZeroPoints(t *testing.T) {
	rc := engagement.NewRankCalculator(engagement.DefaultRanks())
	rp := rc.For(0)
	if rp.Rank.Name != "Bronze" {
		t.Errorf("expected Bronze, got %s", rp.Rank.Name)
	}
	if rp.NextRank != "Silver" || rp.PointsNeeded != 500 {
		t.Errorf("expected Silver in 500, got %s in %d", rp.NextRank, rp.PointsNeeded)
	}
}

func TestRank_TopRank(t *testing.T) {
	rc := engagement.NewRankCalculator(engagement.DefaultRanks())
	for _, pts := range []int64{7000, 12000} {
		rp := rc.For(pts)
		if rp.Rank.Name != "Diamond" {
			t.Errorf("expected Diamond, got %s", rp.Rank.Name)
		}
		if rp.NextRank != domain.MaxRankName || rp.PointsNeeded != 0 {
			t.Errorf("expected Max/0, got %s/%d", rp.NextRank, rp.PointsNeeded)
		}
	}
}

func TestRank_Middle(t *testing.T) {
	rc := engagement.NewRankCalculator(engagement.DefaultRanks())
	rp := rc.For(1000)
	if rp.Rank.Name != "Silver" || rp.NextRank != "Gold" || rp.PointsNeeded != 500 || rp.Progress != 50 {
		t.Errorf("unexpected rank progress %+v", rp)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Badge Tests
// ═══════════════════════════════════════════════════════════════════════════

func incidentBadge() domain.Badge {
	return domain.Badge{
		ID: "resolve_5", Name: "Resolve 5 incidents", Category: domain.CatIncidents, Tier: domain.TierSilver,
		Condition: domain.AtLeast(domain.FieldIncidentsResolved, 5),
	}
}

func TestBadge_DiffOnThreshold(t *testing.T) {
	ev := engagement.NewBadgeEvaluator([]domain.Badge{incidentBadge()}, nop)

	prev := domain.NewUserStats("u1")
	prev.IncidentsResolved = 4
	next := prev.Clone()
	next.IncidentsResolved = 5

	got := ev.Diff(prev, next, prev.Badges)
	if len(got) != 1 || got[0].ID != "resolve_5" {
		t.Fatalf("expected resolve_5, got %v", got)
	}
	if got[0].Name != "Resolve 5 incidents" {
		t.Error("diff should return full badge records")
	}
}

func TestBadge_DiffIdempotent(t *testing.T) {
	ev := engagement.NewBadgeEvaluator(engagement.DefaultBadges(), nop)
	s := domain.NewUserStats("u1")
	s.IncidentsResolved = 12
	s.LostItemsReturned = 3
	s.TotalXP = 1200

	first := ev.Diff(s, s, s.Badges)
	if len(first) == 0 {
		t.Fatal("expected badges on first diff")
	}
	for _, b := range first {
		s.AddBadge(b.ID, time.Now())
	}
	if second := ev.Diff(s, s, s.Badges); len(second) != 0 {
		t.Errorf("expected empty second diff, got %v", second)
	}
}

func TestBadge_HiddenStillUnlockable(t *testing.T) {
	hidden := domain.Badge{
		ID: "secret", Category: domain.CatSpecial, Tier: domain.TierGold, Hidden: true,
		Condition: domain.AtLeast(domain.FieldProceduresCompleted, 1),
	}
	ev := engagement.NewBadgeEvaluator([]domain.Badge{hidden, incidentBadge()}, nop)
	s := domain.NewUserStats("u1")
	s.ProceduresCompleted = 1

	if got := ev.Unlocked(s); !slices.Equal(got, []string{"secret"}) {
		t.Errorf("expected hidden badge unlocked, got %v", got)
	}
	if ev.AvailableCount() != 1 {
		t.Errorf("hidden badges must not count as available, got %d", ev.AvailableCount())
	}
	if len(ev.Visible()) != 1 || ev.Visible()[0].ID != "resolve_5" {
		t.Errorf("unexpected visible set %v", ev.Visible())
	}
}

func TestBadge_FaultIsolation(t *testing.T) {
	badges := []domain.Badge{
		{ID: "errs", Category: domain.CatGeneral, Tier: 1, Condition: domain.Condition{
			Custom: func(domain.UserStats) (bool, error) { return false, errors.New("boom") },
		}},
		{ID: "panics", Category: domain.CatGeneral, Tier: 1, Condition: domain.Condition{
			Custom: func(s domain.UserStats) (bool, error) { return s.Badges[99] == "", nil },
		}},
		{ID: "bad_field", Category: domain.CatGeneral, Tier: 1, Condition: domain.AtLeast("coffee_breaks", 1)},
		incidentBadge(),
	}
	ev := engagement.NewBadgeEvaluator(badges, nop)
	s := domain.NewUserStats("u1")
	s.IncidentsResolved = 5

	got := ev.Diff(s, s, nil)
	if len(got) != 1 || got[0].ID != "resolve_5" {
		t.Errorf("expected only resolve_5 despite failing badges, got %v", got)
	}
}

func TestBadge_CatalogQueries(t *testing.T) {
	ev := engagement.NewBadgeEvaluator(engagement.DefaultBadges(), nop)

	for _, b := range ev.ByCategory(domain.CatLostFound) {
		if b.Category != domain.CatLostFound || b.Hidden {
			t.Errorf("unexpected badge %s in lost_found", b.ID)
		}
	}
	if len(ev.ByCategory(domain.CatLostFound)) != 3 {
		t.Errorf("expected 3 lost_found badges, got %d", len(ev.ByCategory(domain.CatLostFound)))
	}
	if len(ev.Catalog()) != len(engagement.DefaultBadges()) {
		t.Error("Catalog should include hidden badges")
	}
	if _, err := ev.Get("finder"); err != nil {
		t.Errorf("Get(finder): %v", err)
	}
	if _, err := ev.Get("nope"); !errors.Is(err, domain.ErrBadgeNotFound) {
		t.Errorf("expected ErrBadgeNotFound, got %v", err)
	}
}

func TestBadge_AllRounder(t *testing.T) {
	ev := engagement.NewBadgeEvaluator(engagement.DefaultBadges(), nop)
	s := domain.NewUserStats("u1")
	s.IncidentsResolved, s.MaintenanceCompleted, s.LostItemsReturned = 5, 5, 5
	s.ProceduresCompleted, s.QualitySubmissionCount = 5, 4

	if slices.Contains(ev.Unlocked(s), "all_rounder") {
		t.Error("all_rounder needs 5 quality submissions")
	}
	s.QualitySubmissionCount = 5
	if !slices.Contains(ev.Unlocked(s), "all_rounder") {
		t.Error("expected all_rounder")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Challenge Tests
// ═══════════════════════════════════════════════════════════════════════════

func lostItemsChallenge() domain.Challenge {
	return domain.Challenge{ID: "lost10", Title: "Return 10", Field: domain.FieldLostItemsReturned, Target: 10, XPReward: 100}
}

func TestChallenge_Progress(t *testing.T) {
	tr := engagement.NewChallengeTracker([]domain.Challenge{lostItemsChallenge()}, 0)
	s := domain.NewUserStats("u1")
	s.LostItemsReturned = 3

	if p := tr.Progress(tr.Pool(), s)["lost10"]; p != 30 {
		t.Errorf("expected 30, got %d", p)
	}
	s.LostItemsReturned += 2
	if p := tr.Progress(tr.Pool(), s)["lost10"]; p != 50 {
		t.Errorf("expected 50, got %d", p)
	}
	s.LostItemsReturned = 25
	if p := tr.Progress(tr.Pool(), s)["lost10"]; p != 100 {
		t.Errorf("expected clamp at 100, got %d", p)
	}
}

func TestChallenge_ProgressRoundsHalfUp(t *testing.T) {
	ch := domain.Challenge{ID: "p8", Field: domain.FieldProceduresCompleted, Target: 8, XPReward: 10}
	tr := engagement.NewChallengeTracker([]domain.Challenge{ch}, 0)
	s := domain.NewUserStats("u1")
	s.ProceduresCompleted = 1 // 12.5%

	if p := tr.Progress(tr.Pool(), s)["p8"]; p != 13 {
		t.Errorf("expected 13, got %d", p)
	}
}

func TestChallenge_Completed(t *testing.T) {
	tr := engagement.NewChallengeTracker([]domain.Challenge{lostItemsChallenge()}, 0)
	prev := domain.NewUserStats("u1")
	prev.LostItemsReturned = 9
	next := prev.Clone()
	next.LostItemsReturned = 10

	got := tr.Completed(tr.Pool(), prev, next)
	if len(got) != 1 || got[0].ID != "lost10" {
		t.Fatalf("expected lost10 completed, got %v", got)
	}

	// Already met before: not newly completed
	if got := tr.Completed(tr.Pool(), next, next); len(got) != 0 {
		t.Errorf("expected no completion without a transition, got %v", got)
	}

	// Already rewarded: skipped
	next.CompletedChallenges = []string{"lost10"}
	if got := tr.Completed(tr.Pool(), prev, next); len(got) != 0 {
		t.Errorf("expected rewarded challenge to be skipped, got %v", got)
	}
}

func TestChallenge_AllActiveWithoutRotation(t *testing.T) {
	tr := engagement.NewChallengeTracker(engagement.DefaultChallenges(), 0)
	active := tr.Active(time.Now())
	if len(active) != len(engagement.DefaultChallenges()) {
		t.Errorf("expected whole pool active, got %d", len(active))
	}
	for _, c := range active {
		if !c.ExpiresAt.IsZero() {
			t.Errorf("unrotated challenge %s should not expire", c.ID)
		}
	}
}

func TestChallenge_WeeklyRotation(t *testing.T) {
	tr := engagement.NewChallengeTracker(engagement.DefaultChallenges(), 3)
	wed := time.Date(2025, 7, 2, 15, 0, 0, 0, time.UTC) // ISO week 27
	sun := time.Date(2025, 7, 6, 23, 0, 0, 0, time.UTC)

	a := tr.Active(wed)
	b := tr.Active(sun)
	if len(a) != 3 {
		t.Fatalf("expected 3 active, got %d", len(a))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("selection differs within the same week: %s vs %s", a[i].ID, b[i].ID)
		}
	}

	fields := make(map[domain.StatField]bool)
	for _, c := range a {
		if want := "@2025-W27"; len(c.ID) < len(want) || c.ID[len(c.ID)-len(want):] != want {
			t.Errorf("expected week suffix on %s", c.ID)
		}
		if !c.ExpiresAt.Equal(time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected expiry next Monday, got %v", c.ExpiresAt)
		}
		if fields[c.Field] {
			t.Errorf("duplicate field %s in weekly selection", c.Field)
		}
		fields[c.Field] = true
	}
}

func TestChallenge_WeeklyCountsFromBaseline(t *testing.T) {
	pool := []domain.Challenge{
		{ID: "two_fixes", Field: domain.FieldMaintenanceCompleted, Target: 2, XPReward: 20},
		{ID: "two_drills", Field: domain.FieldProceduresCompleted, Target: 2, XPReward: 20},
	}
	tr := engagement.NewChallengeTracker(pool, 1)
	now := time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC) // ISO week 29

	s := domain.NewUserStats("u1")
	s.MaintenanceCompleted = 5
	s.ProceduresCompleted = 5
	s.ChallengeBaselines = map[string]float64{"two_fixes@2025-W28": 3}

	active := tr.Active(now)
	id := active[0].ID

	// Lifetime totals already past the target do not count for a new week
	st := tr.Statuses(active, s)
	if st[0].Progress != 0 || st[0].Completed {
		t.Errorf("expected untouched weekly challenge, got %d%% completed=%v", st[0].Progress, st[0].Completed)
	}

	base := tr.Enroll(active, s, now)
	if len(s.ChallengeBaselines) != 1 || s.ChallengeBaselines["two_fixes@2025-W28"] != 3 {
		t.Errorf("input baselines were modified: %v", s.ChallengeBaselines)
	}
	if len(base.ChallengeBaselines) != 1 || base.ChallengeBaselines[id] != 5 {
		t.Fatalf("expected only %s at 5, got %v", id, base.ChallengeBaselines)
	}

	one := base.Clone()
	one.MaintenanceCompleted++
	one.ProceduresCompleted++
	if p := tr.Progress(active, one)[id]; p != 50 {
		t.Errorf("expected 50, got %d", p)
	}
	if got := tr.Completed(active, base, one); len(got) != 0 {
		t.Errorf("expected no completion yet, got %v", got)
	}

	// Enrolling again keeps the week's starting point
	if again := tr.Enroll(active, one, now); again.ChallengeBaselines[id] != 5 {
		t.Errorf("baseline moved to %v", again.ChallengeBaselines[id])
	}

	two := one.Clone()
	two.MaintenanceCompleted++
	two.ProceduresCompleted++
	got := tr.Completed(active, one, two)
	if len(got) != 1 || got[0].ID != id {
		t.Errorf("expected %s completed, got %v", id, got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Catalog Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestCatalog_DefaultIsValid(t *testing.T) {
	if err := engagement.DefaultCatalog().Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
}

func TestCatalog_EmptyPathIsDefault(t *testing.T) {
	cat, err := engagement.LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(cat.Badges) != len(engagement.DefaultBadges()) {
		t.Error("expected default badges")
	}
}

func TestCatalog_LoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	content := `
[xp]
RESOLVE_INCIDENT = 75

[[ranks]]
name = "Rookie"
min_points = 0

[[ranks]]
name = "Pro"
min_points = 1000

[[badges]]
id = "night_shift"
name = "Night Shift"
category = "special"
tier = 2
hidden = true
condition = { all = [ { field = "incidents_resolved", op = ">=", value = 3.0 }, { field = "current_streak", op = ">=", value = 2.0 } ] }

[[challenges]]
id = "five_fixes"
title = "Five Fixes"
field = "maintenance_completed"
target = 5
xp_reward = 60
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cat, err := engagement.LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if cat.XP[domain.ActionResolveIncident] != 75 {
		t.Errorf("expected overridden XP 75, got %d", cat.XP[domain.ActionResolveIncident])
	}
	if cat.XP[domain.ActionReturnLostItem] != 30 {
		t.Error("unlisted XP entries should keep defaults")
	}
	if len(cat.Ranks) != 2 || cat.Ranks[1].Name != "Pro" {
		t.Errorf("unexpected ranks %+v", cat.Ranks)
	}
	if len(cat.Levels) != len(engagement.DefaultLevels()) {
		t.Error("omitted levels should keep defaults")
	}
	if len(cat.Badges) != 1 || !cat.Badges[0].Hidden || len(cat.Badges[0].Condition.All) != 2 {
		t.Fatalf("unexpected badges %+v", cat.Badges)
	}

	s := domain.NewUserStats("u1")
	s.IncidentsResolved, s.CurrentStreak = 3, 2
	if ok, err := cat.Badges[0].Condition.Eval(s); err != nil || !ok {
		t.Errorf("expected loaded condition to hold, got %v %v", ok, err)
	}
	if cat.Challenges[0].XPReward != 60 {
		t.Errorf("expected xp_reward 60, got %d", cat.Challenges[0].XPReward)
	}
}

func TestCatalog_LoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
levels:
  - {level: 1, min_xp: 0, name: Rookie}
  - {level: 2, min_xp: 50, name: Regular}
badges:
  - id: finder
    name: Finder
    category: lost_found
    tier: 1
    condition: {any: [{field: lost_items_returned, op: ">=", value: 1}, {field: total_xp, op: ">", value: 999}]}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cat, err := engagement.LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(cat.Levels) != 2 || cat.Levels[1].MinXP != 50 {
		t.Errorf("unexpected levels %+v", cat.Levels)
	}
	if len(cat.Badges) != 1 || len(cat.Badges[0].Condition.Any) != 2 {
		t.Errorf("unexpected badges %+v", cat.Badges)
	}
}

func TestCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*engagement.Catalog)
	}{
		{"levels not starting at zero", func(c *engagement.Catalog) { c.Levels[0].MinXP = 10 }},
		{"levels not increasing", func(c *engagement.Catalog) { c.Levels[2].MinXP = c.Levels[1].MinXP }},
		{"empty ranks", func(c *engagement.Catalog) { c.Ranks = nil }},
		{"duplicate badge", func(c *engagement.Catalog) { c.Badges = append(c.Badges, c.Badges[0]) }},
		{"bad category", func(c *engagement.Catalog) { c.Badges[0].Category = "spa" }},
		{"bad tier", func(c *engagement.Catalog) { c.Badges[0].Tier = 4 }},
		{"unknown field", func(c *engagement.Catalog) { c.Badges[0].Condition = domain.AtLeast("naps", 1) }},
		{"unknown operator", func(c *engagement.Catalog) { c.Badges[0].Condition.Op = "~=" }},
		{"zero target", func(c *engagement.Catalog) { c.Challenges[0].Target = 0 }},
		{"zero reward", func(c *engagement.Catalog) { c.Challenges[0].XPReward = 0 }},
		{"week suffix in id", func(c *engagement.Catalog) { c.Challenges[0].ID = "x@2025-W01" }},
		{"missing xp entry", func(c *engagement.Catalog) { delete(c.XP, domain.ActionResolveIncident) }},
		{"challenge on total xp", func(c *engagement.Catalog) { c.Challenges[0].Field = domain.FieldTotalXP }},
		{"challenge on badge count", func(c *engagement.Catalog) { c.Challenges[0].Field = domain.FieldBadgesUnlocked }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := engagement.DefaultCatalog()
			tt.mutate(&cat)
			if err := cat.Validate(); !errors.Is(err, domain.ErrInvalidCatalog) {
				t.Errorf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestCatalog_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := engagement.LoadCatalog(path); !errors.Is(err, domain.ErrInvalidCatalog) {
		t.Errorf("expected ErrInvalidCatalog, got %v", err)
	}
}
