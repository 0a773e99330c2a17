package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pitchey/ndagate/internal/app"
	"github.com/pitchey/ndagate/internal/database/testutil"
	"github.com/pitchey/ndagate/internal/models"
	"github.com/pitchey/ndagate/pkg/logger"
)

func TestBootstrapRuntimeServesHealth(t *testing.T) {
	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "data", "ndagate.sqlite")

	_, err = app.ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)

	stack, err := bootstrapRuntime(context.Background(), cfg, logger.WithModule("test"))
	require.NoError(t, err)
	defer stack.Shutdown(context.Background(), logger.WithModule("test"))

	_, err = os.Stat(cfg.Database.Path)
	require.NoError(t, err)
	require.True(t, stack.DB.Migrator().HasTable(&models.NDA{}))

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBootstrapRuntimeRejectsMissingSignatureSecret(t *testing.T) {
	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWT.Secret = "jwt-secret"

	_, err = bootstrapRuntime(context.Background(), cfg, logger.WithModule("test"))
	require.Error(t, err)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestRunHelp(t *testing.T) {
	err := run(context.Background(), []string{"-h"})
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestRateLimitStoreSelection(t *testing.T) {
	store, counters, err := rateLimitStore(app.RateLimitConfig{Store: "memory"}, nil)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Nil(t, counters)

	db := testutil.MustOpenTestDB(t, testutil.WithMigrations())
	store, counters, err = rateLimitStore(app.RateLimitConfig{Store: "Database"}, db)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.NotNil(t, counters)

	_, _, err = rateLimitStore(app.RateLimitConfig{Store: "redis"}, nil)
	require.Error(t, err)
}
