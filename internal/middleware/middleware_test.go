package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
}

func (v validatorStub) ValidateToken(string) (*models.JWTClaims, error) {
	return v.claims, v.err
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(_ string, path string, status int, _ time.Duration) {
	o.paths = append(o.paths, path)
	o.statuses = append(o.statuses, status)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(ContextUsernameKey)})
	})
	r.GET("/protected", handlers...)
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Username: "teacher", Role: models.RoleTeacher, SessionID: "s1"}
	r := newRouter(JWT(validatorStub{claims: claims}))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Token abc").Code)

	w := serve(r, "Bearer abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":"teacher"`)

	rejected := newRouter(JWT(validatorStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")}))
	w = serve(rejected, "Bearer abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestRequireRoles(t *testing.T) {
	teacher := &models.JWTClaims{Username: "teacher", Role: models.RoleTeacher, SessionID: "s1"}
	admin := &models.JWTClaims{Username: "admin", Role: models.RoleAdmin, SessionID: "s2"}

	r := newRouter(JWT(validatorStub{claims: teacher}), RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serve(r, "Bearer x").Code)

	r = newRouter(JWT(validatorStub{claims: admin}), RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusOK, serve(r, "Bearer x").Code)

	r = newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
}

func TestMetrics(t *testing.T) {
	observer := &observerStub{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/ping", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, []string{"/ping", "unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNotFound}, observer.statuses)
}
