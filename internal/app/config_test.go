package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 30, cfg.NDA.DefaultExpirationDays)
	require.Equal(t, 7, cfg.NDA.MinExpirationDays)
	require.Equal(t, 365, cfg.NDA.MaxExpirationDays)
	require.True(t, cfg.NDA.Capabilities.Auditing)
	require.Equal(t, "@every 5m", cfg.Maintenance.SweepSchedule)
	require.Equal(t, 2*time.Minute, cfg.Maintenance.SweepTimeout)
	require.Equal(t, 90, cfg.Maintenance.NotificationRetentionDays)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.Equal(t, "memory", cfg.RateLimit.Store)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig("testdata")
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "console", cfg.Server.LogFormat)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 45, cfg.NDA.DefaultExpirationDays)
	require.False(t, cfg.NDA.Capabilities.Watermarking)
	require.Equal(t, 30*time.Second, cfg.Maintenance.SweepTimeout)
	require.Equal(t, 10, cfg.RateLimit.Requests)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("NDAGATE_SERVER_PORT", "7070")
	t.Setenv("NDAGATE_NDA_CAPABILITIES_AUDITING", "false")
	t.Setenv("NDAGATE_MAINTENANCE_SWEEP_TIMEOUT", "45s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.False(t, cfg.NDA.Capabilities.Auditing)
	require.Equal(t, 45*time.Second, cfg.Maintenance.SweepTimeout)
}

func TestDatabaseOpenConfigSelectsDriverSection(t *testing.T) {
	cfg, err := LoadConfig("testdata")
	require.NoError(t, err)

	dbCfg := cfg.Database.DatabaseOpenConfig()
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5433, dbCfg.Port)
	require.Equal(t, "ndagate", dbCfg.Name)
	require.Equal(t, "secret", dbCfg.Password)

	sqlite := DatabaseConfig{Driver: "SQLite", Path: "/tmp/x.sqlite"}.DatabaseOpenConfig()
	require.Equal(t, "sqlite", sqlite.Driver)
	require.Equal(t, "/tmp/x.sqlite", sqlite.Path)
	require.Empty(t, sqlite.Host)
}

func TestJWTServiceConfigFallsBackToDefaultTTL(t *testing.T) {
	out := AuthConfig{JWT: JWTSettings{Secret: "s", Issuer: "i"}}.JWTServiceConfig()
	require.Equal(t, "s", out.Secret)
	require.Equal(t, "i", out.Issuer)
	require.Positive(t, out.AccessTokenTTL)
}

func TestEngineConfigDecodesSecret(t *testing.T) {
	cfg, err := LoadConfig("testdata")
	require.NoError(t, err)

	engineCfg, err := cfg.NDA.EngineConfig()
	require.NoError(t, err)
	require.Len(t, engineCfg.SignatureSecret, 16)
	require.Equal(t, 45, engineCfg.DefaultExpirationDays)
	require.True(t, engineCfg.Capabilities.Auditing)
	require.False(t, engineCfg.Capabilities.Watermarking)
	require.True(t, engineCfg.Capabilities.Downloads)
}

func TestEngineConfigRejectsShortSecret(t *testing.T) {
	_, err := NDAConfig{SignatureSecret: "abcd"}.EngineConfig()
	require.Error(t, err)

	_, err = NDAConfig{}.EngineConfig()
	require.Error(t, err)
}
