package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Validation errors (HTTP 400)
	ErrUnknownAction   = errors.New("unknown action kind")
	ErrInvalidScore    = errors.New("quality score must be between 0 and 100")
	ErrUserIDRequired  = errors.New("user id is required")
	ErrUnknownCategory = errors.New("unknown badge category")

	// Catalog errors
	ErrInvalidCatalog  = errors.New("invalid gamification catalog")
	ErrUnknownField    = errors.New("unknown stat field")
	ErrUnknownOperator = errors.New("unknown comparison operator")
	ErrBadgeNotFound   = errors.New("badge not found")

	// Store errors
	ErrStatsNotFound = errors.New("user stats not found")
	ErrStatsConflict = errors.New("user stats were modified concurrently")
	ErrPersistence   = errors.New("stats store unavailable")
)

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrUserIDRequired) ||
		errors.Is(err, ErrUnknownCategory)
}
