package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sevaportal/portal-api/internal/handler"
	"github.com/sevaportal/portal-api/internal/models"
	"github.com/sevaportal/portal-api/internal/service"
	"github.com/sevaportal/portal-api/pkg/config"
)

const testSecret = "router-secret"

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1", BaseDomain: "portal.example.org"}
	auth := service.NewAuthService(nil, nil, zap.NewNop(), service.AuthConfig{AccessTokenSecret: testSecret, Issuer: "portal-api"})
	metrics := service.NewMetricsService()
	access := service.NewAccessService(nil, service.AccessPaths{}, metrics, zap.NewNop())

	h := Handlers{
		Auth:         handler.NewAuthHandler(auth),
		Access:       handler.NewAccessHandler(access, nil),
		Schedule:     handler.NewScheduleHandler(nil, nil),
		Session:      handler.NewSessionHandler(nil),
		Availability: handler.NewAvailabilityHandler(nil),
		Metrics:      handler.NewMetricsHandler(metrics, nil),
	}
	return Setup(cfg, h, auth, metrics, zap.NewNop())
}

func token(t *testing.T, role models.Role, projects ...string) string {
	t.Helper()
	now := time.Now()
	claims := &models.JWTClaims{
		UserID:      "u1",
		Role:        role,
		ProjectKeys: projects,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "portal-api",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func request(r *gin.Engine, method, target, bearer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	r := newEngine(t)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/ready", "", "").Code)

	w := request(r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestScheduleRoutesRequireExe(t *testing.T) {
	r := newEngine(t)

	w := request(r, http.MethodGet, "/api/v1/schedule?projectKey=alpha&date=2026-10-20", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(r, http.MethodGet, "/api/v1/schedule?projectKey=alpha&date=2026-10-20", token(t, models.RoleVolunteer, "alpha"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"requiredRole":"exe"`)

	w = request(r, http.MethodGet, "/api/v1/schedule?projectKey=alpha&date=2026-10-20", token(t, models.RoleStudent), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProjectScopeEnforced(t *testing.T) {
	r := newEngine(t)

	w := request(r, http.MethodGet, "/api/v1/schedule?projectKey=beta&date=2026-10-20", token(t, models.RoleExe, "alpha"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"projectKey":"beta"`)
}

func TestAccessCheckIsPublic(t *testing.T) {
	r := newEngine(t)

	w := request(r, http.MethodPost, "/api/v1/access/check", "", `{"path":"/student/home"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"target":"/student/login"`)
	assert.Contains(t, w.Body.String(), `"from":"/student/home"`)

	w = request(r, http.MethodPost, "/api/v1/access/check", token(t, models.RoleExe, "alpha"), `{"path":"/doubts"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"target":"/unauthorized"`)

	w = request(r, http.MethodPost, "/api/v1/access/check", "garbage", `{"path":"/doubts"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"unauthenticated"`)
}

func TestMetricsSnapshotAdminOnly(t *testing.T) {
	r := newEngine(t)

	w := request(r, http.MethodGet, "/api/v1/metrics/snapshot", token(t, models.RoleSecy, "alpha"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(r, http.MethodGet, "/api/v1/metrics/snapshot", token(t, models.RoleAdmin), "")
	assert.Equal(t, http.StatusOK, w.Code)
}
