package app

import (
	"fmt"
	"strings"

	"github.com/pitchey/ndagate/internal/auth"
	"github.com/pitchey/ndagate/internal/database"
	"github.com/pitchey/ndagate/internal/services"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// DatabaseOpenConfig resolves the driver specific section into database.Config.
func (c DatabaseConfig) DatabaseOpenConfig() database.Config {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	cfg := database.Config{Driver: driver, Path: c.Path, DSN: c.DSN}

	var section DBAuthConfig
	switch driver {
	case "postgres", "postgresql":
		section = c.Postgres
	case "mysql":
		section = c.MySQL
	default:
		return cfg
	}

	cfg.Host = section.Host
	cfg.Port = section.Port
	cfg.Name = section.Database
	cfg.User = section.Username
	cfg.Password = section.Password
	return cfg
}

// EngineConfig converts NDAConfig into services.EngineConfig, decoding the signature key.
func (c NDAConfig) EngineConfig() (services.EngineConfig, error) {
	secret, err := DecodeKey(c.SignatureSecret)
	if err != nil {
		return services.EngineConfig{}, fmt.Errorf("nda signature secret: %w", err)
	}
	if len(secret) < minSignatureKeyBytes {
		return services.EngineConfig{}, fmt.Errorf("nda signature secret: need at least %d bytes, got %d", minSignatureKeyBytes, len(secret))
	}

	return services.EngineConfig{
		DefaultExpirationDays: c.DefaultExpirationDays,
		MinExpirationDays:     c.MinExpirationDays,
		MaxExpirationDays:     c.MaxExpirationDays,
		SignatureSecret:       secret,
		Capabilities: services.Capabilities{
			Auditing:     c.Capabilities.Auditing,
			Watermarking: c.Capabilities.Watermarking,
			Downloads:    c.Capabilities.Downloads,
		},
	}, nil
}
