// Package engagement implements the staffxp gamification engine.
// Stats accumulation, levels, ranks, badges and weekly challenges, plus the
// Engine that runs one action through all of them and persists the result.
package engagement

import (
	"fmt"
	"time"

	"github.com/hotelops/staffxp/internal/domain"
)

// DateLayout is the calendar-day format stored in UserStats.LastActivityDate.
const DateLayout = "2006-01-02"

// advanceStreak updates the activity streak for an action on day at.
// A day counts once; consecutive days extend, gaps reset to 1.
// Actions dated before the last activity day leave the streak untouched.
func advanceStreak(s *domain.UserStats, at time.Time, loc *time.Location) {
	today := at.In(loc).Format(DateLayout)

	if s.LastActivityDate == "" {
		s.CurrentStreak = 1
		s.LastActivityDate = today
	} else {
		gap, err := dayGap(s.LastActivityDate, today)
		switch {
		case err != nil:
			// Unparseable date from an older document: start over.
			s.CurrentStreak = 1
			s.LastActivityDate = today
		case gap == 0:
			// Same day, already counted
			if s.CurrentStreak == 0 {
				s.CurrentStreak = 1
			}
		case gap == 1:
			s.CurrentStreak++
			s.LastActivityDate = today
		case gap > 1:
			s.CurrentStreak = 1
			s.LastActivityDate = today
		default:
			// Backdated action
		}
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
}

// dayGap returns the number of calendar days from a to b (both DateLayout).
// Dates are compared as civil dates so DST shifts never produce half days.
func dayGap(a, b string) (int, error) {
	da, err := time.Parse(DateLayout, a)
	if err != nil {
		return 0, fmt.Errorf("parse last activity date: %w", err)
	}
	db, err := time.Parse(DateLayout, b)
	if err != nil {
		return 0, fmt.Errorf("parse activity date: %w", err)
	}
	return int(db.Sub(da).Hours() / 24), nil
}

// isoWeek returns "YYYY-Www" for the given time.
func isoWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// weekStart returns the Monday 00:00 UTC that starts t's ISO week.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0
	return t.AddDate(0, 0, -offset)
}

// nextMonday returns the next Monday at 00:00 UTC after the given time.
func nextMonday(t time.Time) time.Time {
	return weekStart(t).AddDate(0, 0, 7)
}
