package models

import "time"

// TeacherGrid lays out a teacher's week as Period rows by Day columns.
type TeacherGrid struct {
	Staff   string           `json:"staff"`
	Week    string           `json:"week"`
	Days    []string         `json:"days"`
	Periods []string         `json:"periods"`
	Rows    []TeacherGridRow `json:"rows"`
}

// TeacherGridRow holds one period across the week. Cells align with Days.
type TeacherGridRow struct {
	Period string     `json:"period"`
	Cells  []GridCell `json:"cells"`
}

// GridCellStatus colours a grid cell in the teacher view.
type GridCellStatus string

const (
	GridCellEmpty       GridCellStatus = "EMPTY"
	GridCellAllocated   GridCellStatus = "ALLOCATED"
	GridCellUnallocated GridCellStatus = "UNALLOCATED"
)

// GridCell is the rendered content of a single grid position.
type GridCell struct {
	Text   string         `json:"text"`
	Status GridCellStatus `json:"status"`
}

// SpaceHeatmap counts classes per space and period for one week.
type SpaceHeatmap struct {
	Week    string            `json:"week"`
	Periods []string          `json:"periods"`
	Rows    []SpaceHeatmapRow `json:"rows"`
}

// SpaceHeatmapRow holds per-period counts for one space. Counts align with Periods.
type SpaceHeatmapRow struct {
	Space  string `json:"space"`
	Counts []int  `json:"counts"`
	Total  int    `json:"total"`
}

// ActivityCount is the number of sessions scheduled for a sport.
type ActivityCount struct {
	Sport    string `json:"sport"`
	Sessions int    `json:"sessions"`
}

// ReasonCount groups unallocated records by diagnostic.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// AllocationSummary reports how much of a run was resolved.
type AllocationSummary struct {
	Total       int           `json:"total"`
	Allocated   int           `json:"allocated"`
	Unallocated int           `json:"unallocated"`
	Conflicts   int           `json:"conflicts"`
	Reasons     []ReasonCount `json:"reasons"`
}

// RecordFilter narrows a result set. Empty fields match everything.
type RecordFilter struct {
	Staff  string `form:"staff" json:"staff,omitempty"`
	Week   string `form:"week" json:"week,omitempty"`
	Day    string `form:"day" json:"day,omitempty"`
	Period string `form:"period" json:"period,omitempty"`
	Space  string `form:"space" json:"space,omitempty"`
	Sport  string `form:"sport" json:"sport,omitempty"`
}

// AllocationRun is the result set of a single run inside a session.
type AllocationRun struct {
	ID          string             `json:"id"`
	State       RunState           `json:"state"`
	StartedAt   time.Time          `json:"startedAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
	Days        int                `json:"days"`
	Policy      string             `json:"policy"`
	Records     []AllocationRecord `json:"records"`
	Error       string             `json:"error,omitempty"`
}
