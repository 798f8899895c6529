package dto

import (
	"time"

	"github.com/noah-isme/pe-space-master/internal/models"
)

// RunAllocationRequest configures an allocation run. Empty fields fall back
// to the configured defaults. EndDate switches from a day count to a date range.
type RunAllocationRequest struct {
	StartDate string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Weeks     int    `json:"weeks" validate:"omitempty,min=1,max=52"`
	Days      int    `json:"days" validate:"omitempty,min=1,max=366"`
	Policy    string `json:"policy" validate:"omitempty,oneof=block-cycle fixed-split monday-toggle"`
	StartWeek string `json:"startWeek" validate:"omitempty,oneof=A B a b"`
	Debug     *bool  `json:"debug"`
}

// ResolveRequest asks for the allocation of a single class on a date.
type ResolveRequest struct {
	Class string `json:"class" validate:"required"`
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
}

// ResultsQuery filters and pages the records of the latest run.
type ResultsQuery struct {
	models.RecordFilter
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

// RunInfo describes the latest run without its records.
type RunInfo struct {
	ID          string          `json:"id"`
	State       models.RunState `json:"state"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Days        int             `json:"days"`
	Policy      string          `json:"policy"`
	Records     int             `json:"records"`
	Error       string          `json:"error,omitempty"`
}

// AllocationStatusResponse reports the state of the caller's session.
type AllocationStatusResponse struct {
	SessionID  string                    `json:"sessionId"`
	State      models.RunState           `json:"state"`
	Timetable  *models.UploadInfo        `json:"timetable,omitempty"`
	Curriculum *models.UploadInfo        `json:"curriculum,omitempty"`
	Facilities int                       `json:"facilities"`
	Run        *RunInfo                  `json:"run,omitempty"`
	Summary    *models.AllocationSummary `json:"summary,omitempty"`
}

// ReplaceFacilitiesRequest replaces the session's facility table.
type ReplaceFacilitiesRequest struct {
	Facilities []models.FacilityMapping `json:"facilities" validate:"required,min=1,dive"`
}
