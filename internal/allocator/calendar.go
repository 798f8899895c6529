package allocator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/pe-space-master/internal/models"
)

// WeekPolicy decides which week of the A/B cycle a school day belongs to.
type WeekPolicy string

const (
	// WeekPolicyBlockCycle labels school days in blocks of five: A, B, A, ...
	WeekPolicyBlockCycle WeekPolicy = "block-cycle"
	// WeekPolicyFixedSplit labels the first five school days A and all later days B.
	WeekPolicyFixedSplit WeekPolicy = "fixed-split"
	// WeekPolicyMondayToggle starts on StartWeek and flips on every Monday after the first day.
	WeekPolicyMondayToggle WeekPolicy = "monday-toggle"
)

// DefaultSchoolDays is the length of a run when neither days nor weeks are given.
const DefaultSchoolDays = 10

const schoolWeekDays = 5

var (
	ErrMissingStartDate  = errors.New("start date is required")
	ErrInvalidDateRange  = errors.New("end date is before start date")
	ErrNegativeDayCount  = errors.New("days and weeks must not be negative")
	ErrUnknownWeekPolicy = errors.New("unknown week policy")
)

// ParseWeekPolicy accepts the policy names case-insensitively. Blank selects block-cycle.
func ParseWeekPolicy(raw string) (WeekPolicy, error) {
	switch WeekPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", WeekPolicyBlockCycle:
		return WeekPolicyBlockCycle, nil
	case WeekPolicyFixedSplit:
		return WeekPolicyFixedSplit, nil
	case WeekPolicyMondayToggle:
		return WeekPolicyMondayToggle, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWeekPolicy, raw)
}

// SchedulePlan describes the calendar window of an allocation run.
type SchedulePlan struct {
	Start     time.Time
	End       time.Time
	Weeks     int
	Days      int
	Policy    WeekPolicy
	StartWeek string
}

// ScheduledDay is one school day of a plan with its cycle label.
type ScheduledDay struct {
	Index int
	Date  time.Time
	Week  string
}

// DayName returns the weekday name of the day.
func (d ScheduledDay) DayName() string {
	return d.Date.Weekday().String()
}

// DayCount returns how many school days a count-based plan covers.
func (p SchedulePlan) DayCount() int {
	switch {
	case p.Days > 0:
		return p.Days
	case p.Weeks > 0:
		return p.Weeks * schoolWeekDays
	default:
		return DefaultSchoolDays
	}
}

// Validate checks the plan without expanding it.
func (p SchedulePlan) Validate() error {
	if p.Start.IsZero() {
		return ErrMissingStartDate
	}
	if p.Days < 0 || p.Weeks < 0 {
		return ErrNegativeDayCount
	}
	if !p.End.IsZero() && DateOnly(p.End).Before(DateOnly(p.Start)) {
		return ErrInvalidDateRange
	}
	if _, err := ParseWeekPolicy(string(p.Policy)); err != nil {
		return err
	}
	return nil
}

// Calendar expands the plan into labelled school days, skipping weekends.
// A non-zero End selects every weekday in [Start, End]; otherwise DayCount
// school days are produced from Start onwards.
func (p SchedulePlan) Calendar() ([]ScheduledDay, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	policy, _ := ParseWeekPolicy(string(p.Policy))

	var dates []time.Time
	if p.End.IsZero() {
		dates = SchoolDays(p.Start, p.DayCount())
	} else {
		dates = SchoolDaysBetween(p.Start, p.End)
	}

	days := make([]ScheduledDay, len(dates))
	week := startWeekLabel(p.StartWeek)
	for i, d := range dates {
		switch policy {
		case WeekPolicyFixedSplit:
			week = models.WeekB
			if i < schoolWeekDays {
				week = models.WeekA
			}
		case WeekPolicyMondayToggle:
			if i > 0 && d.Weekday() == time.Monday {
				week = otherWeek(week)
			}
		default:
			week = models.WeekA
			if (i/schoolWeekDays)%2 == 1 {
				week = models.WeekB
			}
		}
		days[i] = ScheduledDay{Index: i, Date: d, Week: week}
	}
	return days, nil
}

// SchoolDays returns the first n weekdays on or after start.
func SchoolDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := DateOnly(start); len(out) < n; d = d.AddDate(0, 0, 1) {
		if isSchoolDay(d) {
			out = append(out, d)
		}
	}
	return out
}

// SchoolDaysBetween returns every weekday in [start, end].
func SchoolDaysBetween(start, end time.Time) []time.Time {
	var out []time.Time
	last := DateOnly(end)
	for d := DateOnly(start); !d.After(last); d = d.AddDate(0, 0, 1) {
		if isSchoolDay(d) {
			out = append(out, d)
		}
	}
	return out
}

func isSchoolDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func startWeekLabel(raw string) string {
	if NormalizeWeek(raw) == models.WeekB {
		return models.WeekB
	}
	return models.WeekA
}

func otherWeek(week string) string {
	if week == models.WeekA {
		return models.WeekB
	}
	return models.WeekA
}
