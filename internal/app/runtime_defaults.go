package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	jwtSecretBytes       = 48
	signatureSecretBytes = 32
)

// ApplyRuntimeDefaults fills secrets missing from configuration with random values.
// It returns which keys were generated so callers can log the event without exposing values.
// Generated signature secrets do not survive a restart, so stored signature hashes
// only verify while the process that wrote them is running.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := generateHexKey(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	if strings.TrimSpace(cfg.NDA.SignatureSecret) == "" {
		secret, err := generateHexKey(signatureSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate nda signature secret: %w", err)
		}
		cfg.NDA.SignatureSecret = secret
		generated["nda.signature_secret"] = true
	}

	return generated, nil
}

func generateHexKey(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
