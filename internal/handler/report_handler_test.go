package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pe-space-master/internal/dto"
	"github.com/noah-isme/pe-space-master/internal/middleware"
	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
)

type reportServiceMock struct {
	teacherQuery dto.TeacherScheduleQuery
	freeQuery    dto.FreeSpacesQuery
	sessionID    string
	err          error
}

func (m *reportServiceMock) TeacherSchedule(ctx context.Context, sessionID string, query dto.TeacherScheduleQuery) (*dto.TeacherScheduleResponse, error) {
	m.sessionID, m.teacherQuery = sessionID, query
	if m.err != nil {
		return nil, m.err
	}
	return &dto.TeacherScheduleResponse{Grid: models.TeacherGrid{Staff: query.Staff, Week: models.WeekA}}, nil
}

func (m *reportServiceMock) Heatmap(ctx context.Context, sessionID string, query dto.WeekQuery) (*models.SpaceHeatmap, error) {
	return &models.SpaceHeatmap{Week: query.Week}, m.err
}

func (m *reportServiceMock) Activities(ctx context.Context, sessionID string) ([]models.ActivityCount, error) {
	return []models.ActivityCount{{Sport: "Football", Sessions: 2}}, m.err
}

func (m *reportServiceMock) FreeSpaces(ctx context.Context, sessionID string, query dto.FreeSpacesQuery) (*dto.FreeSpacesResponse, error) {
	m.freeQuery = query
	return &dto.FreeSpacesResponse{Spaces: []string{"Astro"}}, m.err
}

func (m *reportServiceMock) Conflicts(ctx context.Context, sessionID string) ([]models.AllocationRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.AllocationRecord{{Class: "7A", Space: "Field"}, {Class: "8B", Space: "Field"}}, nil
}

func (m *reportServiceMock) Staff(ctx context.Context, sessionID string) ([]string, error) {
	return []string{"Mr Jones"}, m.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withSession(c *gin.Context, sessionID string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "static-teacher", Username: "teacher", Role: models.RoleTeacher, SessionID: sessionID})
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestReportHandlerTeacher(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{}
	h := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/reports/teacher?staff=Mr+Jones&week=B", nil)
	withSession(c, "s1")
	h.Teacher(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", mockSvc.sessionID)
	assert.Equal(t, dto.TeacherScheduleQuery{Staff: "Mr Jones", Week: "B"}, mockSvc.teacherQuery)
	grid := decodeEnvelope(t, w)["data"].(map[string]interface{})["grid"].(map[string]interface{})
	assert.Equal(t, "Mr Jones", grid["staff"])
}

func TestReportHandlerRequiresSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&reportServiceMock{})

	c, w := newGinContext(http.MethodGet, "/reports/conflicts", nil)
	h.Conflicts(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerNotRun(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&reportServiceMock{err: appErrors.Clone(appErrors.ErrNotRun, "run the allocation first")})

	c, w := newGinContext(http.MethodGet, "/reports/conflicts", nil)
	withSession(c, "s1")
	h.Conflicts(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "NOT_RUN", errBody["code"])
}

func TestReportHandlerViews(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{}
	h := NewReportHandler(mockSvc)

	cases := []struct {
		name   string
		path   string
		handle gin.HandlerFunc
	}{
		{"heatmap", "/reports/heatmap?week=A", h.Heatmap},
		{"activities", "/reports/activities", h.Activities},
		{"free spaces", "/reports/free-spaces?day=Monday&period=2", h.FreeSpaces},
		{"conflicts", "/reports/conflicts", h.Conflicts},
		{"staff", "/reports/staff", h.Staff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newGinContext(http.MethodGet, tc.path, nil)
			withSession(c, "s1")
			tc.handle(c)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.NotNil(t, decodeEnvelope(t, w)["data"])
		})
	}
	assert.Equal(t, dto.FreeSpacesQuery{Day: "Monday", Period: "2"}, mockSvc.freeQuery)
}
