package engagement

import (
	"fmt"
	"strings"

	"github.com/hotelops/staffxp/internal/domain"
)

// DefaultXPTable returns the base XP granted per action kind.
func DefaultXPTable() map[domain.ActionKind]int64 {
	return map[domain.ActionKind]int64{
		domain.ActionResolveIncident:     50,
		domain.ActionCompleteMaintenance: 40,
		domain.ActionReturnLostItem:      30,
		domain.ActionSubmitQualityScore:  20,
		domain.ActionCompleteWeeklyGoal:  100,
		domain.ActionCompleteProcedure:   15,
	}
}

// ParseActionKind accepts "RESOLVE_INCIDENT", "resolve_incident" or "resolve-incident".
func ParseActionKind(s string) (domain.ActionKind, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, k := range domain.ActionKinds() {
		if string(k) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownAction, s)
}

// counterFor returns the counter an action increments, nil for actions
// handled separately (quality scores).
func counterFor(s *domain.UserStats, kind domain.ActionKind) *int64 {
	switch kind {
	case domain.ActionResolveIncident:
		return &s.IncidentsResolved
	case domain.ActionCompleteMaintenance:
		return &s.MaintenanceCompleted
	case domain.ActionReturnLostItem:
		return &s.LostItemsReturned
	case domain.ActionCompleteWeeklyGoal:
		return &s.WeeklyGoalsCompleted
	case domain.ActionCompleteProcedure:
		return &s.ProceduresCompleted
	}
	return nil
}
