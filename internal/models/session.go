package models

import "time"

// UploadInfo describes a table accepted into a session.
type UploadInfo struct {
	Filename   string    `json:"filename"`
	Rows       int       `json:"rows"`
	Columns    []string  `json:"columns"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// AllocationSession is the working state of one logged in user: uploaded
// tables, the editable facility table and the latest run.
type AllocationSession struct {
	ID             string            `json:"id"`
	Timetable      []TimetableRow    `json:"timetable,omitempty"`
	TimetableInfo  *UploadInfo       `json:"timetableInfo,omitempty"`
	Curriculum     []CurriculumRule  `json:"curriculum,omitempty"`
	CurriculumInfo *UploadInfo       `json:"curriculumInfo,omitempty"`
	Facilities     []FacilityMapping `json:"facilities,omitempty"`
	Run            *AllocationRun    `json:"run,omitempty"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// Ready reports whether both input tables have been uploaded.
func (s *AllocationSession) Ready() bool {
	return s.TimetableInfo != nil && s.CurriculumInfo != nil
}
