package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/api"
	"github.com/pitchey/ndagate/internal/app"
	iauth "github.com/pitchey/ndagate/internal/auth"
	sharedtestutil "github.com/pitchey/ndagate/internal/database/testutil"
	"github.com/pitchey/ndagate/internal/middleware"
	"github.com/pitchey/ndagate/internal/models"
	"github.com/pitchey/ndagate/internal/realtime"
	"github.com/pitchey/ndagate/internal/services"
	"github.com/pitchey/ndagate/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T             *testing.T
	DB            *gorm.DB
	Router        *gin.Engine
	JWT           *iauth.JWTService
	Engine        *services.Engine
	Notifications *services.NotificationService
	Hub           *realtime.Hub
	Config        *app.Config
}

// NewEnv provisions a fresh handler test environment with migrations applied. mutate may
// adjust the configuration before the router is built.
func NewEnv(t *testing.T, mutate ...func(*app.Config)) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithMigrations())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		NDA: app.NDAConfig{
			SignatureSecret: "00112233445566778899aabbccddeeff",
			Capabilities: app.CapabilitiesConfig{
				Auditing:     true,
				Watermarking: true,
				Downloads:    true,
			},
		},
		RateLimit: app.RateLimitConfig{Enabled: true, Requests: 1000, Window: time.Minute},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	hub := realtime.NewHub()
	notifications, err := services.NewNotificationService(db, hub)
	require.NoError(t, err)

	engineCfg, err := cfg.NDA.EngineConfig()
	require.NoError(t, err)
	engine, err := services.NewEngine(services.EngineDeps{
		DB:       db,
		Notifier: notifications,
		Config:   engineCfg,
	})
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		DB:            db,
		JWT:           jwtSvc,
		Engine:        engine,
		Notifications: notifications,
		Hub:           hub,
		Config:        cfg,
		RateStore:     middleware.NewMemoryRateStore(),
	})
	require.NoError(t, err)

	return &Env{
		T:             t,
		DB:            db,
		Router:        router,
		JWT:           jwtSvc,
		Engine:        engine,
		Notifications: notifications,
		Hub:           hub,
		Config:        cfg,
	}
}

// CreatePitch inserts a protected item owned by ownerID and returns its id.
func (e *Env) CreatePitch(ownerID string) string {
	e.T.Helper()

	pitch := &models.Pitch{OwnerID: ownerID, Title: "Pitch of " + ownerID, RequiresNDA: true}
	require.NoError(e.T, e.DB.Create(pitch).Error)
	return pitch.ID
}

// Token issues an access token for the actor.
func (e *Env) Token(actorID, role string) string {
	e.T.Helper()

	token, err := e.JWT.Issue(iauth.Identity{ActorID: actorID, Role: role})
	require.NoError(e.T, err)
	return token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
