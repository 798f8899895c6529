package models

import "time"

// Sentinel values written into allocation records that could not be resolved.
const (
	SpaceTBC    = "TBC"
	SportNone   = "None"
	StaffNone   = "Unknown"
	ReasonMatch = "Matched"
)

// Week labels for the two-week rotating timetable.
const (
	WeekA = "Week A"
	WeekB = "Week B"
)

// MatchKind ranks how specifically a curriculum rule matched a class.
// Values are ordered so that a higher kind always supersedes a lower one.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchAll
	MatchLetter
	MatchExact
)

// String implements fmt.Stringer.
func (k MatchKind) String() string {
	switch k {
	case MatchAll:
		return "ALL"
	case MatchLetter:
		return "LETTER"
	case MatchExact:
		return "EXACT"
	default:
		return "NONE"
	}
}

// MarshalText renders the kind as its string label.
func (k MatchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a label written by MarshalText. Unknown labels read as NONE.
func (k *MatchKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ALL":
		*k = MatchAll
	case "LETTER":
		*k = MatchLetter
	case "EXACT":
		*k = MatchExact
	default:
		*k = MatchNone
	}
	return nil
}

// FailureKind classifies why a record degraded to TBC.
type FailureKind string

const (
	FailureNone               FailureKind = ""
	FailureInvalidClassFormat FailureKind = "INVALID_CLASS_FORMAT"
	FailureNoRuleFound        FailureKind = "NO_RULE_FOUND"
	FailureUnmappedSport      FailureKind = "UNMAPPED_SPORT"
	FailureMalformedRuleDate  FailureKind = "MALFORMED_RULE_DATE"
)

// CurriculumRule assigns a sport to a year/class/day within a date window.
// Start and End are parsed at load time; a zero value means the raw text
// could not be read as a date.
type CurriculumRule struct {
	Row      int       `json:"row" yaml:"row"`
	Year     string    `json:"year" yaml:"year"`
	Class    string    `json:"class" yaml:"class"`
	Day      string    `json:"day,omitempty" yaml:"day"`
	Start    time.Time `json:"start" yaml:"start"`
	End      time.Time `json:"end" yaml:"end"`
	StartRaw string    `json:"startRaw,omitempty" yaml:"startRaw"`
	EndRaw   string    `json:"endRaw,omitempty" yaml:"endRaw"`
	Sport    string    `json:"sport" yaml:"sport"`
}

// HasValidWindow reports whether both dates parsed and Start <= End.
func (r CurriculumRule) HasValidWindow() bool {
	if r.Start.IsZero() || r.End.IsZero() {
		return false
	}
	return !r.End.Before(r.Start)
}

// FacilityMapping maps a sport onto the space it is played in.
type FacilityMapping struct {
	Sport string `json:"sport" yaml:"sport" validate:"required"`
	Space string `json:"space" yaml:"space" validate:"required"`
}

// ClassCode is a decomposed class identifier such as "7Hope" or "Y10a".
type ClassCode struct {
	Raw    string `json:"raw"`
	Year   string `json:"year"`
	Token  string `json:"token"`
	Letter string `json:"letter"`
}

// PeriodCount is the number of timetable period columns per day.
const PeriodCount = 5

// TimetableRow is one staff member's day in the rotating timetable.
type TimetableRow struct {
	Row     int                 `json:"row"`
	Week    string              `json:"week"`
	Day     string              `json:"day"`
	Staff   string              `json:"staff"`
	Periods [PeriodCount]string `json:"periods"`
}

// AllocationRecord is one scheduled timetable cell with its resolved space.
type AllocationRecord struct {
	Date    string      `json:"date"`
	Week    string      `json:"week"`
	Day     string      `json:"day"`
	Period  string      `json:"period"`
	Class   string      `json:"class"`
	Sport   string      `json:"sport"`
	Space   string      `json:"space"`
	Reason  string      `json:"reason"`
	Staff   string      `json:"staff"`
	Match   MatchKind   `json:"match"`
	Failure FailureKind `json:"failure,omitempty"`
}

// Allocated reports whether the record was assigned a real space.
func (r AllocationRecord) Allocated() bool {
	return r.Space != "" && r.Space != SpaceTBC
}

// AllocationOutcome is the result of resolving one class on one date.
type AllocationOutcome struct {
	Space   string      `json:"space"`
	Sport   string      `json:"sport"`
	Reason  string      `json:"reason"`
	Match   MatchKind   `json:"match"`
	Failure FailureKind `json:"failure,omitempty"`
	Fuzzy   bool        `json:"fuzzy"`
	Trace   []string    `json:"trace,omitempty"`
}

// RunState tracks the lifecycle of an allocation run within a session.
type RunState string

const (
	RunStateNotRun   RunState = "NOT_RUN"
	RunStateRunning  RunState = "RUNNING"
	RunStateComplete RunState = "COMPLETE"
	RunStateFailed   RunState = "FAILED"
)
