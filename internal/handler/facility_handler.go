package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pe-space-master/internal/allocator"
	"github.com/noah-isme/pe-space-master/internal/dto"
	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
	"github.com/noah-isme/pe-space-master/pkg/response"
)

type facilityService interface {
	Facilities(ctx context.Context, sessionID string) ([]models.FacilityMapping, error)
	ReplaceFacilities(ctx context.Context, sessionID string, req dto.ReplaceFacilitiesRequest) ([]models.FacilityMapping, error)
	ResetFacilities(ctx context.Context, sessionID string) ([]models.FacilityMapping, error)
}

// FacilityHandler manages the sport to space table of a session.
type FacilityHandler struct {
	service        facilityService
	maxUploadBytes int64
}

// NewFacilityHandler constructs the handler.
func NewFacilityHandler(svc facilityService, maxUploadBytes int64) *FacilityHandler {
	return &FacilityHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// List godoc
// @Summary Facility table
// @Description The session's sport to space table. format=yaml downloads it as a file.
// @Tags Facilities
// @Security BearerAuth
// @Produce json
// @Param format query string false "json or yaml"
// @Success 200 {object} response.Envelope
// @Router /facilities [get]
func (h *FacilityHandler) List(c *gin.Context) {
	sessionID, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.Facilities(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if c.Query("format") == "yaml" {
		var buf bytes.Buffer
		if err := allocator.WriteFacilities(&buf, entries); err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, "facilities.yaml", "application/yaml", int64(buf.Len()), &buf)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"count": len(entries)})
}

// Replace godoc
// @Summary Replace facility table
// @Tags Facilities
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.ReplaceFacilitiesRequest true "Facility table"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /facilities [put]
func (h *FacilityHandler) Replace(c *gin.Context) {
	sessionID, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReplaceFacilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid facility payload"))
		return
	}
	entries, err := h.service.ReplaceFacilities(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Import godoc
// @Summary Import facility table
// @Description Replace the facility table from a YAML or CSV file
// @Tags Facilities
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "facilities.yaml or facilities.csv"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /facilities/import [post]
func (h *FacilityHandler) Import(c *gin.Context) {
	sessionID, err := sessionFromContext(c)
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

	mappings, err := allocator.ReadFacilities(header.Filename, file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidTable.Code, appErrors.ErrInvalidTable.Status, header.Filename+": "+err.Error()))
		return
	}
	entries, err := h.service.ReplaceFacilities(c.Request.Context(), sessionID, dto.ReplaceFacilitiesRequest{Facilities: mappings})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Reset godoc
// @Summary Reset facility table
// @Description Restore the default facility table
// @Tags Facilities
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /facilities/reset [post]
func (h *FacilityHandler) Reset(c *gin.Context) {
	sessionID, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.ResetFacilities(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}
