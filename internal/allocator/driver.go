package allocator

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/pe-space-master/internal/models"
)

var reservedCells = map[string]struct{}{
	"lunch": {},
	"free":  {},
	"break": {},
}

// ResolveAllocation resolves the sport and space for one class on one date.
// It never fails: every problem is reported through Failure and Reason with
// the space left as TBC.
func ResolveAllocation(code string, date time.Time, rules []models.CurriculumRule, facilities FacilityMap, debug bool) models.AllocationOutcome {
	sport := ResolveSport(code, date, rules, debug)
	if !sport.Found() {
		return models.AllocationOutcome{
			Space:   models.SpaceTBC,
			Sport:   models.SportNone,
			Reason:  sport.Reason,
			Failure: sport.Failure,
			Trace:   sport.Trace,
		}
	}

	space := facilities.MapSpace(sport.Sport)
	outcome := models.AllocationOutcome{
		Space:   space.Space,
		Sport:   sport.Sport,
		Reason:  space.Reason,
		Match:   sport.Match,
		Failure: space.Failure,
		Fuzzy:   space.Fuzzy,
		Trace:   sport.Trace,
	}
	if debug && space.Fuzzy {
		outcome.Trace = append(outcome.Trace, fmt.Sprintf("sport %q mapped to %q by partial name", sport.Sport, space.Space))
	}
	return outcome
}

// ProgressFunc observes a run; done counts processed school days.
type ProgressFunc func(done, total int)

// TraceFunc receives the diagnostics gathered for a record in debug mode.
type TraceFunc func(record models.AllocationRecord, trace []string)

type runOptions struct {
	progress ProgressFunc
	trace    TraceFunc
}

// Option customises GenerateSchedule.
type Option func(*runOptions)

// WithProgress reports progress after each school day.
func WithProgress(fn ProgressFunc) Option {
	return func(o *runOptions) { o.progress = fn }
}

// WithTrace enables debug diagnostics and hands them to fn for each record
// that produced any.
func WithTrace(fn TraceFunc) Option {
	return func(o *runOptions) { o.trace = fn }
}

// GenerateSchedule allocates every processable timetable cell on every school
// day of the plan. Records come back in calendar, timetable-row and period
// order; identical inputs always give an identical sequence.
func GenerateSchedule(plan SchedulePlan, timetable []models.TimetableRow, rules []models.CurriculumRule, facilities FacilityMap, opts ...Option) ([]models.AllocationRecord, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	days, err := plan.Calendar()
	if err != nil {
		return nil, err
	}

	debug := o.trace != nil
	records := make([]models.AllocationRecord, 0)
	for i, day := range days {
		dayName := day.DayName()
		date := day.Date.Format(time.DateOnly)
		for _, row := range timetable {
			if !strings.EqualFold(strings.TrimSpace(row.Week), day.Week) || !strings.EqualFold(strings.TrimSpace(row.Day), dayName) {
				continue
			}
			staff := strings.TrimSpace(row.Staff)
			if staff == "" {
				staff = models.StaffNone
			}
			for p, cell := range row.Periods {
				class := strings.TrimSpace(cell)
				if !Schedulable(class) {
					continue
				}
				outcome := ResolveAllocation(class, day.Date, rules, facilities, debug)
				record := models.AllocationRecord{
					Date:    date,
					Week:    day.Week,
					Day:     dayName,
					Period:  PeriodLabel(p + 1),
					Class:   class,
					Sport:   outcome.Sport,
					Space:   outcome.Space,
					Reason:  outcome.Reason,
					Staff:   staff,
					Match:   outcome.Match,
					Failure: outcome.Failure,
				}
				records = append(records, record)
				if debug && len(outcome.Trace) > 0 {
					o.trace(record, outcome.Trace)
				}
			}
		}
		if o.progress != nil {
			o.progress(i+1, len(days))
		}
	}
	return records, nil
}

// Schedulable reports whether a timetable cell holds a class to allocate.
func Schedulable(cell string) bool {
	v := strings.TrimSpace(cell)
	if v == "" {
		return false
	}
	_, reserved := reservedCells[strings.ToLower(v)]
	return !reserved
}

// PeriodLabel returns the column name for a 1-based period number.
func PeriodLabel(n int) string {
	return fmt.Sprintf("Period %d", n)
}
