package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pe-space-master/internal/dto"
	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
	"github.com/noah-isme/pe-space-master/pkg/response"
)

type reportService interface {
	TeacherSchedule(ctx context.Context, sessionID string, query dto.TeacherScheduleQuery) (*dto.TeacherScheduleResponse, error)
	Heatmap(ctx context.Context, sessionID string, query dto.WeekQuery) (*models.SpaceHeatmap, error)
	Activities(ctx context.Context, sessionID string) ([]models.ActivityCount, error)
	FreeSpaces(ctx context.Context, sessionID string, query dto.FreeSpacesQuery) (*dto.FreeSpacesResponse, error)
	Conflicts(ctx context.Context, sessionID string) ([]models.AllocationRecord, error)
	Staff(ctx context.Context, sessionID string) ([]string, error)
}

// ReportHandler serves the views derived from the latest run.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Teacher godoc
// @Summary Teacher timetable
// @Description A teacher's week as a period by day grid and as a list
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param staff query string true "Staff name"
// @Param week query string false "Week A or Week B"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/teacher [get]
func (h *ReportHandler) Teacher(c *gin.Context) {
	var query dto.TeacherScheduleQuery
	if !bindQuery(c, &query) {
		return
	}
	h.respond(c, func(ctx context.Context, sessionID string) (interface{}, error) {
		return h.service.TeacherSchedule(ctx, sessionID, query)
	})
}

// Heatmap godoc
// @Summary Space utilisation
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param week query string false "Week A or Week B"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/heatmap [get]
func (h *ReportHandler) Heatmap(c *gin.Context) {
	var query dto.WeekQuery
	if !bindQuery(c, &query) {
		return
	}
	h.respond(c, func(ctx context.Context, sessionID string) (interface{}, error) {
		return h.service.Heatmap(ctx, sessionID, query)
	})
}

// Activities godoc
// @Summary Sessions per sport
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/activities [get]
func (h *ReportHandler) Activities(c *gin.Context) {
	h.respond(c, func(ctx context.Context, sessionID string) (interface{}, error) {
		return h.service.Activities(ctx, sessionID)
	})
}

// FreeSpaces godoc
// @Summary Free space finder
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param week query string false "Week A or Week B"
// @Param day query string true "Weekday"
// @Param period query string true "Period number or label"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/free-spaces [get]
func (h *ReportHandler) FreeSpaces(c *gin.Context) {
	var query dto.FreeSpacesQuery
	if !bindQuery(c, &query) {
		return
	}
	h.respond(c, func(ctx context.Context, sessionID string) (interface{}, error) {
		return h.service.FreeSpaces(ctx, sessionID, query)
	})
}

// Conflicts godoc
// @Summary Conflict report
// @Description Records that share a date, period and space
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/conflicts [get]
func (h *ReportHandler) Conflicts(c *gin.Context) {
	h.respond(c, func(ctx context.Context, sessionID string) (interface{}, error) {
		return h.service.Conflicts(ctx, sessionID)
	})
}

// Staff godoc
// @Summary Staff list
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/staff [get]
func (h *ReportHandler) Staff(c *gin.Context) {
	h.respond(c, func(ctx context.Context, sessionID string) (interface{}, error) {
		return h.service.Staff(ctx, sessionID)
	})
}

func (h *ReportHandler) respond(c *gin.Context, fn func(ctx context.Context, sessionID string) (interface{}, error)) {
	sessionID, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := fn(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, data)
}

func bindQuery(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindQuery(target); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return false
	}
	return true
}
