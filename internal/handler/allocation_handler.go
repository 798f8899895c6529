package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pe-space-master/internal/dto"
	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
	"github.com/noah-isme/pe-space-master/pkg/response"
)

type allocationService interface {
	UploadTimetable(ctx context.Context, sessionID, filename string, r io.Reader, headerRow int) (*models.UploadInfo, error)
	UploadCurriculum(ctx context.Context, sessionID, filename string, r io.Reader, headerRow int) (*models.UploadInfo, error)
	Run(ctx context.Context, sessionID string, req dto.RunAllocationRequest) (*models.AllocationRun, error)
	Status(ctx context.Context, sessionID string) (*dto.AllocationStatusResponse, error)
	Results(ctx context.Context, sessionID string, query dto.ResultsQuery) ([]models.AllocationRecord, *models.Pagination, error)
	Summary(ctx context.Context, sessionID string) (*models.AllocationSummary, error)
	Resolve(ctx context.Context, sessionID string, req dto.ResolveRequest) (*models.AllocationOutcome, error)
}

type uploadFunc func(ctx context.Context, sessionID, filename string, r io.Reader, headerRow int) (*models.UploadInfo, error)

// AllocationHandler exposes uploads, runs and their results.
type AllocationHandler struct {
	service        allocationService
	maxUploadBytes int64
}

// NewAllocationHandler constructs the handler. maxUploadBytes <= 0 disables the size check.
func NewAllocationHandler(svc allocationService, maxUploadBytes int64) *AllocationHandler {
	return &AllocationHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// UploadTimetable godoc
// @Summary Upload timetable
// @Description Upload the rotating staff timetable (.csv or .xlsx) into the caller's session
// @Tags Allocation
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Timetable file"
// @Param headerRow formData int false "1-based header row"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /allocation/timetable [post]
func (h *AllocationHandler) UploadTimetable(c *gin.Context) {
	h.upload(c, h.service.UploadTimetable)
}

// UploadCurriculum godoc
// @Summary Upload curriculum
// @Description Upload the curriculum rules (.csv or .xlsx) into the caller's session
// @Tags Allocation
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Curriculum file"
// @Param headerRow formData int false "1-based header row"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /allocation/curriculum [post]
func (h *AllocationHandler) UploadCurriculum(c *gin.Context) {
	h.upload(c, h.service.UploadCurriculum)
}

func (h *AllocationHandler) upload(c *gin.Context, fn uploadFunc) {
	sessionID, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	headerRow, err := headerRowParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	header, file, err := uploadedFile(c, h.maxUploadBytes)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := fn(c.Request.Context(), sessionID, header.Filename, file, headerRow)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, info)
}

// Run godoc
// @Summary Run allocation
// @Description Allocate every timetable cell over the requested school days. Replaces the previous result set.
// @Tags Allocation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.RunAllocationRequest false "Run parameters"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /allocation/run [post]
func (h *AllocationHandler) Run(c *gin.Context) {
	sessionID, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RunAllocationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run payload"))
			return
		}
	}

	run, err := h.service.Run(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.service.Status(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"run": status.Run, "summary": status.Summary, "id": run.ID})
}

// Status godoc
// @Summary Session status
// @Tags Allocation
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /allocation/status [get]
func (h *AllocationHandler) Status(c *gin.Context) {
	sessionID, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.service.Status(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Results godoc
// @Summary Allocation records
// @Description Records of the latest run, filtered and paginated
// @Tags Allocation
// @Security BearerAuth
// @Produce json
// @Param staff query string false "Staff name"
// @Param week query string false "Week A or Week B"
// @Param day query string false "Weekday"
// @Param period query string false "Period label"
// @Param space query string false "Space"
// @Param sport query string false "Sport"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allocation/results [get]
func (h *AllocationHandler) Results(c *gin.Context) {
	sessionID, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.ResultsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	records, pagination, err := h.service.Results(c.Request.Context(), sessionID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Summary godoc
// @Summary Run summary
// @Tags Allocation
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allocation/summary [get]
func (h *AllocationHandler) Summary(c *gin.Context) {
	sessionID, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Resolve godoc
// @Summary Explain one allocation
// @Description Resolve a single class on a date with diagnostics
// @Tags Allocation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.ResolveRequest true "Class and date"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /allocation/resolve [post]
func (h *AllocationHandler) Resolve(c *gin.Context) {
	sessionID, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resolve payload"))
		return
	}
	outcome, err := h.service.Resolve(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, outcome)
}
