package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pe-space-master/internal/dto"
	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
)

type allocationServiceMock struct {
	uploadedName string
	uploadedBody string
	headerRow    int
	runReq       dto.RunAllocationRequest
	resultsQuery dto.ResultsQuery
	runErr       error
}

func (m *allocationServiceMock) upload(filename string, r io.Reader, headerRow int) (*models.UploadInfo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.uploadedName, m.uploadedBody, m.headerRow = filename, string(body), headerRow
	return &models.UploadInfo{Filename: filename, Rows: 1, Columns: []string{"Week"}, UploadedAt: time.Now()}, nil
}

func (m *allocationServiceMock) UploadTimetable(ctx context.Context, sessionID, filename string, r io.Reader, headerRow int) (*models.UploadInfo, error) {
	return m.upload(filename, r, headerRow)
}

func (m *allocationServiceMock) UploadCurriculum(ctx context.Context, sessionID, filename string, r io.Reader, headerRow int) (*models.UploadInfo, error) {
	return m.upload(filename, r, headerRow)
}

func (m *allocationServiceMock) Run(ctx context.Context, sessionID string, req dto.RunAllocationRequest) (*models.AllocationRun, error) {
	m.runReq = req
	if m.runErr != nil {
		return nil, m.runErr
	}
	return &models.AllocationRun{ID: "run-1", State: models.RunStateComplete}, nil
}

func (m *allocationServiceMock) Status(ctx context.Context, sessionID string) (*dto.AllocationStatusResponse, error) {
	return &dto.AllocationStatusResponse{
		SessionID: sessionID,
		State:     models.RunStateComplete,
		Run:       &dto.RunInfo{ID: "run-1", State: models.RunStateComplete, Records: 3},
		Summary:   &models.AllocationSummary{Total: 3, Allocated: 2, Unallocated: 1},
	}, nil
}

func (m *allocationServiceMock) Results(ctx context.Context, sessionID string, query dto.ResultsQuery) ([]models.AllocationRecord, *models.Pagination, error) {
	m.resultsQuery = query
	return []models.AllocationRecord{{Class: "7Hope"}}, &models.Pagination{Page: 1, PageSize: 1, TotalCount: 3}, nil
}

func (m *allocationServiceMock) Summary(ctx context.Context, sessionID string) (*models.AllocationSummary, error) {
	return &models.AllocationSummary{Total: 3}, nil
}

func (m *allocationServiceMock) Resolve(ctx context.Context, sessionID string, req dto.ResolveRequest) (*models.AllocationOutcome, error) {
	return &models.AllocationOutcome{Sport: "Football", Space: "Field", Match: models.MatchAll}, nil
}

func newMultipartContext(t *testing.T, path, filename, content string, fields map[string]string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	c, w := newGinContext(http.MethodPost, path, body.Bytes())
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	return c, w
}

func TestAllocationHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &allocationServiceMock{}
	h := NewAllocationHandler(mockSvc, 1024)

	c, w := newMultipartContext(t, "/allocation/timetable", "timetable.csv", "Week,Day\nA,Monday\n", map[string]string{"headerRow": "2"})
	withSession(c, "s1")
	h.UploadTimetable(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "timetable.csv", mockSvc.uploadedName)
	assert.Equal(t, "Week,Day\nA,Monday\n", mockSvc.uploadedBody)
	assert.Equal(t, 2, mockSvc.headerRow)

	c, w = newMultipartContext(t, "/allocation/curriculum", "curriculum.csv", "Year,Class\n", nil)
	withSession(c, "s1")
	h.UploadCurriculum(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0, mockSvc.headerRow)
}

func TestAllocationHandlerUploadErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAllocationHandler(&allocationServiceMock{}, 8)

	c, w := newMultipartContext(t, "/allocation/timetable", "", "", nil)
	withSession(c, "s1")
	h.UploadTimetable(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newMultipartContext(t, "/allocation/timetable", "timetable.csv", strings.Repeat("x", 64), nil)
	withSession(c, "s1")
	h.UploadTimetable(c)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	c, w = newMultipartContext(t, "/allocation/timetable", "t.csv", "x", map[string]string{"headerRow": "zero"})
	withSession(c, "s1")
	h.UploadTimetable(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllocationHandlerRun(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &allocationServiceMock{}
	h := NewAllocationHandler(mockSvc, 0)

	payload, _ := json.Marshal(dto.RunAllocationRequest{StartDate: "2025-09-01", Weeks: 2, Policy: "monday-toggle"})
	c, w := newGinContext(http.MethodPost, "/allocation/run", payload)
	withSession(c, "s1")
	h.Run(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, mockSvc.runReq.Weeks)
	assert.Equal(t, "monday-toggle", mockSvc.runReq.Policy)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "run-1", data["id"])
	assert.Equal(t, float64(3), data["summary"].(map[string]interface{})["total"])

	c, w = newGinContext(http.MethodPost, "/allocation/run", nil)
	withSession(c, "s1")
	h.Run(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodPost, "/allocation/run", []byte("{bad"))
	withSession(c, "s1")
	h.Run(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockSvc.runErr = appErrors.Clone(appErrors.ErrNoData, "upload both tables")
	c, w = newGinContext(http.MethodPost, "/allocation/run", nil)
	withSession(c, "s1")
	h.Run(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestAllocationHandlerResults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &allocationServiceMock{}
	h := NewAllocationHandler(mockSvc, 0)

	c, w := newGinContext(http.MethodGet, "/allocation/results?staff=Jones&week=Week+A&page=2&pageSize=1", nil)
	withSession(c, "s1")
	h.Results(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jones", mockSvc.resultsQuery.Staff)
	assert.Equal(t, "Week A", mockSvc.resultsQuery.Week)
	assert.Equal(t, 2, mockSvc.resultsQuery.Page)
	body := decodeEnvelope(t, w)
	assert.Equal(t, float64(3), body["pagination"].(map[string]interface{})["total_count"])
}

func TestAllocationHandlerStatusSummaryResolve(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAllocationHandler(&allocationServiceMock{}, 0)

	c, w := newGinContext(http.MethodGet, "/allocation/status", nil)
	withSession(c, "s1")
	h.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", decodeEnvelope(t, w)["data"].(map[string]interface{})["sessionId"])

	c, w = newGinContext(http.MethodGet, "/allocation/summary", nil)
	withSession(c, "s1")
	h.Summary(c)
	assert.Equal(t, http.StatusOK, w.Code)

	payload, _ := json.Marshal(dto.ResolveRequest{Class: "7Hope", Date: "2025-09-01"})
	c, w = newGinContext(http.MethodPost, "/allocation/resolve", payload)
	withSession(c, "s1")
	h.Resolve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ALL", decodeEnvelope(t, w)["data"].(map[string]interface{})["match"])
}
