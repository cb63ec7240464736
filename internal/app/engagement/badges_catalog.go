package engagement

import (
	d "github.com/hotelops/staffxp/internal/domain"
)

// ─── Badge Definitions ──────────────────────────────────────────────────────
// Built-in catalog. A catalog file may replace it wholesale.

// DefaultBadges returns the built-in badge catalog.
func DefaultBadges() []d.Badge {
	return []d.Badge{
		// ── Incidents ──────────────────────────────────────────────────
		{
			ID: "first_responder", Name: "First Responder", Category: d.CatIncidents, Tier: d.TierBronze,
			Icon: "🚨", Description: "Resolve your first incident",
			Condition: d.AtLeast(d.FieldIncidentsResolved, 1),
		},
		{
			ID: "incident_handler", Name: "Incident Handler", Category: d.CatIncidents, Tier: d.TierSilver,
			Icon: "🧯", Description: "Resolve 5 incidents",
			Condition: d.AtLeast(d.FieldIncidentsResolved, 5),
		},
		{
			ID: "crisis_commander", Name: "Crisis Commander", Category: d.CatIncidents, Tier: d.TierGold,
			Icon: "🛡️", Description: "Resolve 50 incidents",
			Condition: d.AtLeast(d.FieldIncidentsResolved, 50),
		},

		// ── Maintenance ────────────────────────────────────────────────
		{
			ID: "first_fix", Name: "First Fix", Category: d.CatMaintenance, Tier: d.TierBronze,
			Icon: "🔧", Description: "Complete your first maintenance request",
			Condition: d.AtLeast(d.FieldMaintenanceCompleted, 1),
		},
		{
			ID: "handy_hand", Name: "Handy Hand", Category: d.CatMaintenance, Tier: d.TierSilver,
			Icon: "🛠️", Description: "Complete 10 maintenance requests",
			Condition: d.AtLeast(d.FieldMaintenanceCompleted, 10),
		},
		{
			ID: "master_mechanic", Name: "Master Mechanic", Category: d.CatMaintenance, Tier: d.TierGold,
			Icon: "⚙️", Description: "Complete 50 maintenance requests",
			Condition: d.AtLeast(d.FieldMaintenanceCompleted, 50),
		},

		// ── Quality ────────────────────────────────────────────────────
		{
			ID: "first_audit", Name: "First Audit", Category: d.CatQuality, Tier: d.TierBronze,
			Icon: "📝", Description: "Submit your first quality score",
			Condition: d.AtLeast(d.FieldQualitySubmissions, 1),
		},
		{
			ID: "quality_champion", Name: "Quality Champion", Category: d.CatQuality, Tier: d.TierSilver,
			Icon: "✨", Description: "Keep an average of 90+ over at least 5 audits",
			Condition: d.AllOf(
				d.AtLeast(d.FieldQualitySubmissions, 5),
				d.AtLeast(d.FieldAvgQualityScore, 90),
			),
		},
		{
			ID: "flawless", Name: "Flawless", Category: d.CatQuality, Tier: d.TierGold, Hidden: true,
			Icon: "💯", Description: "Hold a perfect 100 average over 10 audits",
			Condition: d.AllOf(
				d.AtLeast(d.FieldQualitySubmissions, 10),
				d.Condition{Field: d.FieldAvgQualityScore, Op: d.OpEQ, Value: 100},
			),
		},

		// ── Lost & Found ───────────────────────────────────────────────
		{
			ID: "finder", Name: "Finder", Category: d.CatLostFound, Tier: d.TierBronze,
			Icon: "🔍", Description: "Return your first lost item",
			Condition: d.AtLeast(d.FieldLostItemsReturned, 1),
		},
		{
			ID: "good_samaritan", Name: "Good Samaritan", Category: d.CatLostFound, Tier: d.TierSilver,
			Icon: "🤲", Description: "Return 10 lost items to guests",
			Condition: d.AtLeast(d.FieldLostItemsReturned, 10),
		},
		{
			ID: "treasure_keeper", Name: "Treasure Keeper", Category: d.CatLostFound, Tier: d.TierGold,
			Icon: "🧳", Description: "Return 50 lost items to guests",
			Condition: d.AtLeast(d.FieldLostItemsReturned, 50),
		},

		// ── Procedures ─────────────────────────────────────────────────
		{
			ID: "by_the_book", Name: "By the Book", Category: d.CatProcedures, Tier: d.TierBronze,
			Icon: "📘", Description: "Complete your first procedure",
			Condition: d.AtLeast(d.FieldProceduresCompleted, 1),
		},
		{
			ID: "procedure_expert", Name: "Procedure Expert", Category: d.CatProcedures, Tier: d.TierSilver,
			Icon: "📚", Description: "Complete 25 procedures",
			Condition: d.AtLeast(d.FieldProceduresCompleted, 25),
		},

		// ── General ────────────────────────────────────────────────────
		{
			ID: "goal_getter", Name: "Goal Getter", Category: d.CatGeneral, Tier: d.TierBronze,
			Icon: "🎯", Description: "Complete a weekly goal",
			Condition: d.AtLeast(d.FieldWeeklyGoalsCompleted, 1),
		},
		{
			ID: "week_warrior", Name: "Week Warrior", Category: d.CatGeneral, Tier: d.TierSilver,
			Icon: "🔥", Description: "Stay active 7 days in a row",
			Condition: d.AtLeast(d.FieldCurrentStreak, 7),
		},
		{
			ID: "monthly_machine", Name: "Monthly Machine", Category: d.CatGeneral, Tier: d.TierGold,
			Icon: "💪", Description: "Stay active 30 days in a row",
			Condition: d.AtLeast(d.FieldLongestStreak, 30),
		},
		{
			ID: "rising_star", Name: "Rising Star", Category: d.CatGeneral, Tier: d.TierSilver,
			Icon: "🌅", Description: "Earn 1,000 XP",
			Condition: d.AtLeast(d.FieldTotalXP, 1000),
		},

		// ── Special ────────────────────────────────────────────────────
		{
			ID: "all_rounder", Name: "All-Rounder", Category: d.CatSpecial, Tier: d.TierSilver,
			Icon: "🎲", Description: "Log at least 5 of every kind of operational task",
			Condition: d.Condition{Custom: allRounder(5)},
		},
		{
			ID: "collector", Name: "Collector", Category: d.CatSpecial, Tier: d.TierGold, Hidden: true,
			Icon: "🗝️", Description: "Unlock 10 badges",
			Condition: d.AtLeast(d.FieldBadgesUnlocked, 10),
		},
		{
			ID: "hotel_legend", Name: "Hotel Legend", Category: d.CatSpecial, Tier: d.TierGold,
			Icon: "👑", Description: "Reach 5,500 XP",
			Condition: d.AtLeast(d.FieldTotalXP, 5500),
		},
	}
}

// allRounder holds when every operational counter is at least n.
func allRounder(n int64) func(d.UserStats) (bool, error) {
	return func(s d.UserStats) (bool, error) {
		return min(s.IncidentsResolved, s.MaintenanceCompleted, s.LostItemsReturned,
			s.ProceduresCompleted, s.QualitySubmissionCount) >= n, nil
	}
}
