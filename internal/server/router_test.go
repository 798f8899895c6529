package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-space-master/pkg/config"
)

const (
	routerTimetableCSV = `Week,Day,Staff,Period 1,Period 2,Period 3,Period 4,Period 5
Week A,Monday,Mr Jones,7Hope,Lunch,,8Kestrel,
Week A,Tuesday,Ms Patel,9X,,,,
`
	routerCurriculumCSV = `Year,Class,Day,Start,End,Sport
7,ALL,All,01/09/2025,20/12/2025,Football
8,K,,01/09/2025,20/12/2025,Girls Netball
`
)

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:       config.EnvDevelopment,
		Port:      0,
		APIPrefix: "/api/v1",
		JWT:       config.JWTConfig{Secret: "test-secret", Expiration: time.Hour},
		Allocation: config.AllocationConfig{
			StartDate:  time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
			Weeks:      1,
			WeekPolicy: "block-cycle",
			StartWeek:  "A",
			HeaderRow:  1,
		},
		Session: config.SessionConfig{TTL: time.Hour},
		Exports: config.ExportsConfig{
			StorageDir:      t.TempDir(),
			SignedURLSecret: "export-secret",
			SignedURLTTL:    time.Hour,
		},
		Auth: config.AuthConfig{
			Users:           []string{"admin:admin123:admin", "teacher:pe2025:teacher"},
			FacilityEditors: []string{"ADMIN"},
		},
		Upload: config.UploadConfig{MaxBytes: 1 << 20},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app, err := New(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func doRequest(t *testing.T, r http.Handler, method, path, token string, body []byte, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func login(t *testing.T, r http.Handler, username, password string) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	w, env := doRequest(t, r, http.MethodPost, "/api/v1/auth/login", "", payload, "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func upload(t *testing.T, r http.Handler, path, token, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	w, _ := doRequest(t, r, http.MethodPost, path, token, body.Bytes(), writer.FormDataContentType())
	return w
}

func TestRouterAllocationFlow(t *testing.T) {
	r := newTestApp(t).Router()
	token := login(t, r, "teacher", "pe2025")

	w, _ := doRequest(t, r, http.MethodPost, "/api/v1/allocation/run", token, nil, "")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/reports/conflicts", token, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusCreated, upload(t, r, "/api/v1/allocation/timetable", token, "timetable.csv", routerTimetableCSV).Code)
	require.Equal(t, http.StatusCreated, upload(t, r, "/api/v1/allocation/curriculum", token, "curriculum.csv", routerCurriculumCSV).Code)

	w, _ = doRequest(t, r, http.MethodPost, "/api/v1/allocation/run", token, []byte(`{"weeks":1}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := doRequest(t, r, http.MethodGet, "/api/v1/allocation/results?staff=Mr+Jones", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Field", records[0]["space"])

	w, env = doRequest(t, r, http.MethodGet, "/api/v1/allocation/summary", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, float64(3), summary["total"])
	assert.Equal(t, float64(1), summary["unallocated"])

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/reports/teacher?staff=Mr+Jones", token, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = doRequest(t, r, http.MethodPost, "/api/v1/exports", token, []byte(`{"staff":"Mr Jones","week":"A","format":"csv"}`), "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var exp struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &exp))

	w, _ = doRequest(t, r, http.MethodGet, exp.URL, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Date,Week,Day,Period,Class,Sport,Space,Reason,Staff"))

	w, _ = doRequest(t, r, http.MethodPost, "/api/v1/auth/logout", token, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = doRequest(t, r, http.MethodGet, exp.URL, "", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/allocation/summary", token, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouterSessionsAreIsolated(t *testing.T) {
	r := newTestApp(t).Router()
	first := login(t, r, "teacher", "pe2025")
	second := login(t, r, "admin", "admin123")

	require.Equal(t, http.StatusCreated, upload(t, r, "/api/v1/allocation/timetable", first, "timetable.csv", routerTimetableCSV).Code)

	_, env := doRequest(t, r, http.MethodGet, "/api/v1/allocation/status", second, nil, "")
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Nil(t, status["timetable"])
}

func TestRouterAuthAndRoles(t *testing.T) {
	r := newTestApp(t).Router()

	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/allocation/status", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	payload, _ := json.Marshal(map[string]string{"username": "teacher", "password": "nope"})
	w, _ = doRequest(t, r, http.MethodPost, "/api/v1/auth/login", "", payload, "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	teacher := login(t, r, "teacher", "pe2025")
	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/facilities", teacher, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = doRequest(t, r, http.MethodPost, "/api/v1/facilities/reset", teacher, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := login(t, r, "admin", "admin123")
	w, _ = doRequest(t, r, http.MethodPut, "/api/v1/facilities", admin, []byte(`{"facilities":[{"sport":"Hockey","space":"Astro"}]}`), "application/json")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r := newTestApp(t).Router()

	w, _ := doRequest(t, r, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, _ = doRequest(t, r, http.MethodGet, "/ready", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
