package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/pitchey/ndagate/internal/app"
	iauth "github.com/pitchey/ndagate/internal/auth"
	testutil "github.com/pitchey/ndagate/internal/database/testutil"
	"github.com/pitchey/ndagate/internal/services"
)

func newTestDependencies(t *testing.T, cfg *app.Config) Dependencies {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithMigrations())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "test", AccessTokenTTL: 15 * time.Minute})
	require.NoError(t, err)

	engine, err := services.NewEngine(services.EngineDeps{
		DB:     db,
		Config: services.EngineConfig{SignatureSecret: []byte("router-test-secret")},
	})
	require.NoError(t, err)

	return Dependencies{DB: db, JWT: jwtSvc, Engine: engine, Config: cfg}
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	router, err := NewRouter(newTestDependencies(t, &app.Config{}))
	require.NoError(t, err)

	// Health should be public
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/ndas/request"},
		{http.MethodGet, "/api/ndas/incoming"},
		{http.MethodPost, "/api/ndas/abc/approve"},
		{http.MethodPost, "/api/ndas/abc/sign"},
		{http.MethodGet, "/api/ndas/pitch/abc/status"},
		{http.MethodGet, "/api/ndas/abc/audit"},
	} {
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		require.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}

	// Notifications are only mounted when a service is supplied.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	cfg := &app.Config{Monitoring: app.MonitoringConfig{Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "prom"}}}
	router, err := NewRouter(newTestDependencies(t, cfg))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/prom", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "ndagate_"), "expected ndagate metrics in exposition")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	router, err := NewRouter(newTestDependencies(t, &app.Config{}))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	deps := newTestDependencies(t, &app.Config{})

	missingEngine := deps
	missingEngine.Engine = nil
	_, err := NewRouter(missingEngine)
	require.Error(t, err)

	missingConfig := deps
	missingConfig.Config = nil
	_, err = NewRouter(missingConfig)
	require.Error(t, err)
}
