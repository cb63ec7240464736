package domain

import (
	"fmt"
	"strings"
)

// StatField names a numeric projection of UserStats that conditions compare.
type StatField string

const (
	FieldTotalXP              StatField = "total_xp"
	FieldIncidentsResolved    StatField = "incidents_resolved"
	FieldMaintenanceCompleted StatField = "maintenance_completed"
	FieldLostItemsReturned    StatField = "lost_items_returned"
	FieldWeeklyGoalsCompleted StatField = "weekly_goals_completed"
	FieldProceduresCompleted  StatField = "procedures_completed"
	FieldQualitySubmissions   StatField = "quality_submissions"
	FieldAvgQualityScore      StatField = "avg_quality_score"
	FieldCurrentStreak        StatField = "current_streak"
	FieldLongestStreak        StatField = "longest_streak"
	FieldBadgesUnlocked       StatField = "badges_unlocked"
)

// StatFields returns every field a condition may reference.
func StatFields() []StatField {
	return []StatField{
		FieldTotalXP, FieldIncidentsResolved, FieldMaintenanceCompleted,
		FieldLostItemsReturned, FieldWeeklyGoalsCompleted, FieldProceduresCompleted,
		FieldQualitySubmissions, FieldAvgQualityScore, FieldCurrentStreak,
		FieldLongestStreak, FieldBadgesUnlocked,
	}
}

// Of reads the field from stats.
func (f StatField) Of(s UserStats) (float64, error) {
	switch f {
	case FieldTotalXP:
		return float64(s.TotalXP), nil
	case FieldIncidentsResolved:
		return float64(s.IncidentsResolved), nil
	case FieldMaintenanceCompleted:
		return float64(s.MaintenanceCompleted), nil
	case FieldLostItemsReturned:
		return float64(s.LostItemsReturned), nil
	case FieldWeeklyGoalsCompleted:
		return float64(s.WeeklyGoalsCompleted), nil
	case FieldProceduresCompleted:
		return float64(s.ProceduresCompleted), nil
	case FieldQualitySubmissions:
		return float64(s.QualitySubmissionCount), nil
	case FieldAvgQualityScore:
		return s.AvgQualityScore, nil
	case FieldCurrentStreak:
		return float64(s.CurrentStreak), nil
	case FieldLongestStreak:
		return float64(s.LongestStreak), nil
	case FieldBadgesUnlocked:
		return float64(len(s.Badges)), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, string(f))
}

// Operator is a numeric comparison.
type Operator string

const (
	OpGTE Operator = ">="
	OpGT  Operator = ">"
	OpEQ  Operator = "=="
	OpLTE Operator = "<="
	OpLT  Operator = "<"
)

// Compare applies the operator as "lhs op rhs".
func (o Operator) Compare(lhs, rhs float64) (bool, error) {
	switch o {
	case OpGTE:
		return lhs >= rhs, nil
	case OpGT:
		return lhs > rhs, nil
	case OpEQ:
		return lhs == rhs, nil
	case OpLTE:
		return lhs <= rhs, nil
	case OpLT:
		return lhs < rhs, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownOperator, string(o))
}

// Condition is a declarative predicate over UserStats.
//
// Exactly one shape is used per node: a comparison (Field, Op, Value), a
// conjunction (All), a disjunction (Any), or a Go predicate (Custom). Custom
// cannot be loaded from catalog files and is meant for built-in badges whose
// rule does not fit a comparison.
type Condition struct {
	Field StatField   `json:"field,omitempty" toml:"field" yaml:"field"`
	Op    Operator    `json:"op,omitempty" toml:"op" yaml:"op"`
	Value float64     `json:"value,omitempty" toml:"value" yaml:"value"`
	All   []Condition `json:"all,omitempty" toml:"all" yaml:"all"`
	Any   []Condition `json:"any,omitempty" toml:"any" yaml:"any"`

	Custom func(UserStats) (bool, error) `json:"-" toml:"-" yaml:"-"`
}

// AtLeast is shorthand for "field >= value".
func AtLeast(f StatField, value float64) Condition {
	return Condition{Field: f, Op: OpGTE, Value: value}
}

// AllOf combines conditions with AND.
func AllOf(cs ...Condition) Condition { return Condition{All: cs} }

// AnyOf combines conditions with OR.
func AnyOf(cs ...Condition) Condition { return Condition{Any: cs} }

// Eval evaluates the condition against stats.
func (c Condition) Eval(s UserStats) (bool, error) {
	switch {
	case c.Custom != nil:
		return c.Custom(s)
	case len(c.All) > 0:
		for _, sub := range c.All {
			ok, err := sub.Eval(s)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case len(c.Any) > 0:
		for _, sub := range c.Any {
			ok, err := sub.Eval(s)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	v, err := c.Field.Of(s)
	if err != nil {
		return false, err
	}
	return c.Op.Compare(v, c.Value)
}

// Validate checks that every referenced field and operator is known.
func (c Condition) Validate() error {
	if c.Custom != nil {
		return nil
	}
	if len(c.All) > 0 || len(c.Any) > 0 {
		for _, sub := range append(append([]Condition{}, c.All...), c.Any...) {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
		return nil
	}
	if _, err := c.Field.Of(UserStats{}); err != nil {
		return err
	}
	_, err := c.Op.Compare(0, 0)
	return err
}

func (c Condition) String() string {
	switch {
	case c.Custom != nil:
		return "custom"
	case len(c.All) > 0:
		return "(" + joinConditions(c.All, " AND ") + ")"
	case len(c.Any) > 0:
		return "(" + joinConditions(c.Any, " OR ") + ")"
	}
	return fmt.Sprintf("%s %s %g", c.Field, c.Op, c.Value)
}

func joinConditions(cs []Condition, sep string) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, sep)
}
