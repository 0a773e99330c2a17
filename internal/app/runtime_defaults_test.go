package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyRuntimeDefaultsGeneratesMissingSecrets(t *testing.T) {
	cfg := &Config{}

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)

	require.Len(t, cfg.Auth.JWT.Secret, jwtSecretBytes*2)
	require.Len(t, cfg.NDA.SignatureSecret, signatureSecretBytes*2)
	require.True(t, generated["auth.jwt.secret"])
	require.True(t, generated["nda.signature_secret"])

	engineCfg, err := cfg.NDA.EngineConfig()
	require.NoError(t, err)
	require.Len(t, engineCfg.SignatureSecret, signatureSecretBytes)
}

func TestApplyRuntimeDefaultsPreservesExistingSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.JWT.Secret = "existing"
	cfg.NDA.SignatureSecret = "00112233445566778899aabbccddeeff"

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Empty(t, generated)
	require.Equal(t, "existing", cfg.Auth.JWT.Secret)
	require.Equal(t, "00112233445566778899aabbccddeeff", cfg.NDA.SignatureSecret)
}

func TestApplyRuntimeDefaultsNilConfig(t *testing.T) {
	_, err := ApplyRuntimeDefaults(nil)
	require.Error(t, err)
}
