// Package domain holds the gamification types shared by the engine, the
// stores and the HTTP layer. It has no infrastructure dependencies.
package domain

import (
	"slices"
	"time"
)

// ─── Actions ────────────────────────────────────────────────────────────────

// ActionKind tags an operational event performed by a staff member.
type ActionKind string

const (
	ActionResolveIncident     ActionKind = "RESOLVE_INCIDENT"
	ActionCompleteMaintenance ActionKind = "COMPLETE_MAINTENANCE"
	ActionReturnLostItem      ActionKind = "RETURN_LOST_ITEM"
	ActionSubmitQualityScore  ActionKind = "SUBMIT_QUALITY_SCORE"
	ActionCompleteWeeklyGoal  ActionKind = "COMPLETE_WEEKLY_GOAL"
	ActionCompleteProcedure   ActionKind = "COMPLETE_PROCEDURE"
)

// ActionKinds lists every kind the engine understands, in display order.
func ActionKinds() []ActionKind {
	return []ActionKind{
		ActionResolveIncident,
		ActionCompleteMaintenance,
		ActionReturnLostItem,
		ActionSubmitQualityScore,
		ActionCompleteWeeklyGoal,
		ActionCompleteProcedure,
	}
}

// Action is a single event fed to the engine.
// ID is an optional idempotency key supplied by the caller.
type Action struct {
	ID         string     `json:"id,omitempty"`
	Kind       ActionKind `json:"kind"`
	Score      *float64   `json:"score,omitempty"` // SUBMIT_QUALITY_SCORE only
	OccurredAt time.Time  `json:"occurredAt"`
}

// ─── User Stats ─────────────────────────────────────────────────────────────

// MaxRecentActions bounds the idempotency-key window kept per user.
const MaxRecentActions = 64

// UserStats is the canonical per-user statistics document.
// Counters, TotalXP and Badges only ever grow.
type UserStats struct {
	UserID  string `json:"userId" firestore:"userId"`
	TotalXP int64  `json:"totalXP" firestore:"totalXP"`

	IncidentsResolved    int64 `json:"incidentsResolved" firestore:"incidentsResolved"`
	MaintenanceCompleted int64 `json:"maintenanceCompleted" firestore:"maintenanceCompleted"`
	LostItemsReturned    int64 `json:"lostItemsReturned" firestore:"lostItemsReturned"`
	WeeklyGoalsCompleted int64 `json:"weeklyGoalsCompleted" firestore:"weeklyGoalsCompleted"`
	ProceduresCompleted  int64 `json:"proceduresCompleted" firestore:"proceduresCompleted"`

	AvgQualityScore        float64 `json:"avgQualityScore" firestore:"avgQualityScore"`
	QualitySubmissionCount int64   `json:"qualitySubmissionCount" firestore:"qualitySubmissionCount"`

	CurrentStreak    int    `json:"currentStreak" firestore:"currentStreak"`
	LongestStreak    int    `json:"longestStreak" firestore:"longestStreak"`
	LastActivityDate string `json:"lastActivityDate,omitempty" firestore:"lastActivityDate"` // "2006-01-02"

	Badges              []string             `json:"badges" firestore:"badges"` // sorted
	BadgeUnlockedAt     map[string]time.Time `json:"badgeUnlockedAt,omitempty" firestore:"badgeUnlockedAt"`
	CompletedChallenges []string             `json:"completedChallenges,omitempty" firestore:"completedChallenges"`
	// Field value at the user's first action in a rotated challenge's week,
	// keyed by weekly challenge id. Weekly progress counts from here.
	ChallengeBaselines map[string]float64 `json:"challengeBaselines,omitempty" firestore:"challengeBaselines"`
	RecentActionIDs    []string           `json:"recentActionIds,omitempty" firestore:"recentActionIds"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// NewUserStats returns the zeroed record used for first-time users.
func NewUserStats(userID string) UserStats {
	return UserStats{
		UserID:          userID,
		Badges:          []string{},
		BadgeUnlockedAt: make(map[string]time.Time),
	}
}

// Clone returns a deep copy so callers can never alias a stored snapshot.
func (s UserStats) Clone() UserStats {
	cp := s
	cp.Badges = slices.Clone(s.Badges)
	if cp.Badges == nil {
		cp.Badges = []string{}
	}
	cp.CompletedChallenges = slices.Clone(s.CompletedChallenges)
	cp.RecentActionIDs = slices.Clone(s.RecentActionIDs)
	if s.ChallengeBaselines != nil {
		cp.ChallengeBaselines = make(map[string]float64, len(s.ChallengeBaselines))
		for k, v := range s.ChallengeBaselines {
			cp.ChallengeBaselines[k] = v
		}
	}
	cp.BadgeUnlockedAt = make(map[string]time.Time, len(s.BadgeUnlockedAt))
	for k, v := range s.BadgeUnlockedAt {
		cp.BadgeUnlockedAt[k] = v
	}
	return cp
}

// HasBadge reports whether id is already unlocked.
func (s UserStats) HasBadge(id string) bool {
	_, ok := slices.BinarySearch(s.Badges, id)
	return ok
}

// AddBadge inserts id keeping Badges sorted. Returns false if already present.
func (s *UserStats) AddBadge(id string, at time.Time) bool {
	i, ok := slices.BinarySearch(s.Badges, id)
	if ok {
		return false
	}
	s.Badges = slices.Insert(s.Badges, i, id)
	if s.BadgeUnlockedAt == nil {
		s.BadgeUnlockedAt = make(map[string]time.Time)
	}
	s.BadgeUnlockedAt[id] = at
	return true
}

// HasCompletedChallenge reports whether the challenge reward was already granted.
func (s UserStats) HasCompletedChallenge(id string) bool {
	return slices.Contains(s.CompletedChallenges, id)
}

// SeenAction reports whether the idempotency key was already applied.
func (s UserStats) SeenAction(id string) bool {
	return id != "" && slices.Contains(s.RecentActionIDs, id)
}

// RememberAction records an idempotency key, evicting the oldest beyond MaxRecentActions.
func (s *UserStats) RememberAction(id string) {
	if id == "" {
		return
	}
	s.RecentActionIDs = append(s.RecentActionIDs, id)
	if n := len(s.RecentActionIDs); n > MaxRecentActions {
		s.RecentActionIDs = slices.Clone(s.RecentActionIDs[n-MaxRecentActions:])
	}
}

// ─── Badges ─────────────────────────────────────────────────────────────────

// BadgeCategory groups badges in the gallery.
type BadgeCategory string

const (
	CatIncidents   BadgeCategory = "incidents"
	CatMaintenance BadgeCategory = "maintenance"
	CatQuality     BadgeCategory = "quality"
	CatLostFound   BadgeCategory = "lost_found"
	CatProcedures  BadgeCategory = "procedures"
	CatGeneral     BadgeCategory = "general"
	CatSpecial     BadgeCategory = "special"
)

// BadgeCategories returns every category in gallery order.
func BadgeCategories() []BadgeCategory {
	return []BadgeCategory{CatIncidents, CatMaintenance, CatQuality, CatLostFound, CatProcedures, CatGeneral, CatSpecial}
}

// Valid reports whether c is a known category.
func (c BadgeCategory) Valid() bool {
	return slices.Contains(BadgeCategories(), c)
}

// BadgeTier is cosmetic only.
type BadgeTier int

const (
	TierBronze BadgeTier = 1
	TierSilver BadgeTier = 2
	TierGold   BadgeTier = 3
)

func (t BadgeTier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	}
	return "unknown"
}

// Badge is an immutable catalog entry.
// Hidden badges stay unlockable but are left out of gallery counts.
type Badge struct {
	ID          string        `json:"id" toml:"id" yaml:"id"`
	Name        string        `json:"name" toml:"name" yaml:"name"`
	Description string        `json:"description" toml:"description" yaml:"description"`
	Icon        string        `json:"icon" toml:"icon" yaml:"icon"`
	Category    BadgeCategory `json:"category" toml:"category" yaml:"category"`
	Tier        BadgeTier     `json:"tier" toml:"tier" yaml:"tier"`
	Hidden      bool          `json:"hidden" toml:"hidden" yaml:"hidden"`
	Condition   Condition     `json:"condition" toml:"condition" yaml:"condition"`
}

// ─── Challenges ─────────────────────────────────────────────────────────────

// Challenge is a time-boxed goal over a single stat field.
// It is complete once Field >= Target.
type Challenge struct {
	ID          string    `json:"id" toml:"id" yaml:"id"`
	Title       string    `json:"title" toml:"title" yaml:"title"`
	Description string    `json:"description" toml:"description" yaml:"description"`
	Icon        string    `json:"icon" toml:"icon" yaml:"icon"`
	Field       StatField `json:"field" toml:"field" yaml:"field"`
	Target      int       `json:"target" toml:"target" yaml:"target"`
	XPReward    int       `json:"xpReward" toml:"xp_reward" yaml:"xp_reward"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero" toml:"-" yaml:"-"`
}

// Condition returns the completion predicate.
func (c Challenge) Condition() Condition {
	return Condition{Field: c.Field, Op: OpGTE, Value: float64(c.Target)}
}

// ChallengeStatus pairs a challenge with one user's progress.
type ChallengeStatus struct {
	Challenge
	Progress  int  `json:"progress"` // 0-100
	Completed bool `json:"completed"`
}

// ─── Levels & Ranks ─────────────────────────────────────────────────────────

// Level is one step of the XP curve.
type Level struct {
	Level      int    `json:"level" toml:"level" yaml:"level"`
	MinXP      int64  `json:"minXP" toml:"min_xp" yaml:"min_xp"`
	Name       string `json:"name" toml:"name" yaml:"name"`
	BadgeGlyph string `json:"badgeGlyph" toml:"badge_glyph" yaml:"badge_glyph"`
	ColorToken string `json:"colorToken" toml:"color_token" yaml:"color_token"`
}

// LevelProgress is the read-path projection of TotalXP onto the level table.
type LevelProgress struct {
	Level       int   `json:"level"`
	Progress    int   `json:"progress"` // 0-100 toward the next level
	Info        Level `json:"info"`
	TotalXP     int64 `json:"totalXP"`
	NextLevelXP int64 `json:"nextLevelXP,omitempty"` // 0 at the top level
	XPToNext    int64 `json:"xpToNext"`
}

// MaxRankName is reported as the next rank once the top rank is reached.
const MaxRankName = "Max"

// Rank is a named tier over points.
type Rank struct {
	Name      string `json:"name" toml:"name" yaml:"name"`
	MinPoints int64  `json:"minPoints" toml:"min_points" yaml:"min_points"`
	Icon      string `json:"icon,omitempty" toml:"icon" yaml:"icon"`
}

// RankProgress is the read-path projection of points onto the rank table.
type RankProgress struct {
	Rank         Rank   `json:"rank"`
	Points       int64  `json:"points"`
	NextRank     string `json:"nextRank"`
	PointsNeeded int64  `json:"pointsNeeded"`
	Progress     int    `json:"progress"` // 0-100 toward the next rank
}

// ─── Results ────────────────────────────────────────────────────────────────

// ActionResult is everything the caller needs to render notifications.
// It is only returned once the stats were persisted.
type ActionResult struct {
	ActionID            string        `json:"actionId"`
	UserID              string        `json:"userId"`
	Kind                ActionKind    `json:"kind"`
	Stats               UserStats     `json:"stats"`
	XPGained            int64         `json:"xpGained"` // action XP + challenge rewards
	NewBadges           []Badge       `json:"newBadges"`
	CompletedChallenges []Challenge   `json:"completedChallenges"`
	ChallengeXP         int64         `json:"challengeXP"`
	Level               LevelProgress `json:"level"`
	LeveledUp           bool          `json:"leveledUp"`
	Rank                RankProgress  `json:"rank"`
	RankedUp            bool          `json:"rankedUp"`
	Duplicate           bool          `json:"duplicate"`
}

// BadgeStatus is a gallery row for one user.
type BadgeStatus struct {
	Badge
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}
