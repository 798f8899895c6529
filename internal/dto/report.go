package dto

import "github.com/noah-isme/pe-space-master/internal/models"

// TeacherScheduleQuery selects one teacher's week.
type TeacherScheduleQuery struct {
	Staff string `form:"staff" validate:"required"`
	Week  string `form:"week"`
}

// WeekQuery selects a week of the cycle. Blank means Week A.
type WeekQuery struct {
	Week string `form:"week"`
}

// FreeSpacesQuery selects one slot of the timetable.
type FreeSpacesQuery struct {
	Week   string `form:"week"`
	Day    string `form:"day" validate:"required"`
	Period string `form:"period" validate:"required"`
}

// TeacherScheduleResponse is a teacher's week as a grid and as a list.
type TeacherScheduleResponse struct {
	Grid    models.TeacherGrid        `json:"grid"`
	Records []models.AllocationRecord `json:"records"`
}

// FreeSpacesResponse lists the spaces nobody uses in a slot.
type FreeSpacesResponse struct {
	Week   string   `json:"week"`
	Day    string   `json:"day"`
	Period string   `json:"period"`
	Spaces []string `json:"spaces"`
}
