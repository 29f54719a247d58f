package schedule

import (
	"fmt"
	"time"
)

// Resolver determines the currently active subject. All comparisons happen
// in one fixed timezone, never the server's local zone.
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a resolver pinned to the given zone.
func NewResolver(loc *time.Location) *Resolver {
	return &Resolver{loc: loc}
}

// Location returns the configured zone.
func (r *Resolver) Location() *time.Location { return r.loc }

// Active returns the subject whose eligible interval
// [start, end + attendance_window] contains now, or nil when no class is
// eligible, which is a normal state. When overlapping windows match the
// same instant the earliest start wins, code order breaking exact ties, so
// the result never depends on storage order. Unparseable stored times are
// an infrastructure fault.
func (r *Resolver) Active(now time.Time, subjects []Subject) (*Subject, error) {
	local := now.In(r.loc)
	day := local.Weekday().String()
	minute := local.Hour()*60 + local.Minute()

	var best *Subject
	var bestStart int
	for i := range subjects {
		s := subjects[i]
		if s.DayOfWeek != day {
			continue
		}
		start, err := parseClock(s.StartTime)
		if err != nil {
			return nil, fmt.Errorf("subject %s: bad start time %q: %w", s.Code, s.StartTime, err)
		}
		end, err := parseClock(s.EndTime)
		if err != nil {
			return nil, fmt.Errorf("subject %s: bad end time %q: %w", s.Code, s.EndTime, err)
		}
		if minute < start || minute > end+s.AttendanceWindow {
			continue
		}
		if best == nil || start < bestStart || (start == bestStart && s.Code < best.Code) {
			best = &subjects[i]
			bestStart = start
		}
	}
	return best, nil
}
