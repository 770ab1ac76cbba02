// Package daywindow converts a calendar date and a boundary rule into the
// half-open UTC interval that scopes one business day.
package daywindow

import (
	"errors"
	"fmt"
	"time"

	"dock-stats-backend/config"
)

// ErrFutureDate is returned when the requested business day has not started
// yet in the governing timezone.
var ErrFutureDate = errors.New("requested business day has not started yet")

// Rule is an explicit day-boundary rule. The two variants exist because the
// product's endpoints historically disagreed on what "today" means; a
// deployment picks exactly one in its configuration.
type Rule struct {
	// Boundary is config.DayBoundaryNatural or config.DayBoundaryShifted.
	Boundary string
	// CutoffHour is the wall-clock hour the shifted day starts at. Ignored
	// for the natural rule.
	CutoffHour int
	// Location is the governing timezone.
	Location *time.Location
}

// FromConfig builds the deployment's rule from business configuration.
func FromConfig(b *config.BusinessConfig) Rule {
	return Rule{
		Boundary:   b.DayBoundary,
		CutoffHour: b.CutoffHour,
		Location:   b.Location,
	}
}

// Window returns the half-open [start, end) UTC interval for the business
// day identified by ref (a calendar date in the rule's timezone; the clock
// part is ignored). The invariant end == Window(ref+1day).start holds for
// both rules. A ref whose window starts after now is rejected with
// ErrFutureDate rather than silently matching nothing.
func (r Rule) Window(ref time.Time, now time.Time) (start, end time.Time, err error) {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}

	hour := 0
	if r.Boundary == config.DayBoundaryShifted {
		hour = r.CutoffHour
	}

	y, m, d := ref.Date()
	start = time.Date(y, m, d, hour, 0, 0, 0, loc)
	end = start.AddDate(0, 0, 1)

	if start.After(now) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrFutureDate, y, m, d)
	}
	return start.UTC(), end.UTC(), nil
}

// BusinessDate returns the calendar date, in the rule's timezone, of the
// business day the instant t belongs to. Under the shifted rule an instant
// before the cutoff hour belongs to the previous day's window.
func (r Rule) BusinessDate(t time.Time) time.Time {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if r.Boundary == config.DayBoundaryShifted && local.Hour() < r.CutoffHour {
		local = local.AddDate(0, 0, -1)
	}
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseDate parses a YYYY-MM-DD date in the rule's timezone.
func (r Rule) ParseDate(s string) (time.Time, error) {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}
