package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestIssueAndVerify(t *testing.T) {
	current := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		Issuer:         "ndagate",
		AccessTokenTTL: time.Hour,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := svc.Issue(Identity{ActorID: "investor-1", Role: RoleInvestor})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "investor-1", identity.ActorID)
	require.Equal(t, RoleInvestor, identity.Role)

	_, err = svc.Issue(Identity{})
	require.Error(t, err)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 10, 17, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret", Clock: now})
	require.NoError(t, err)
	verifier, err := NewJWTService(JWTConfig{Secret: "other-secret", Clock: now})
	require.NoError(t, err)

	token, err := issuer.Issue(Identity{ActorID: "creator-1", Role: RoleCreator})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	current := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{Secret: "secret", AccessTokenTTL: time.Minute, Clock: clock})
	require.NoError(t, err)

	token, err := svc.Issue(Identity{ActorID: "creator-1"})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = svc.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	other, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "elsewhere"})
	require.NoError(t, err)
	svc, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "ndagate"})
	require.NoError(t, err)

	token, err := other.Issue(Identity{ActorID: "creator-1"})
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.EqualError(t, err, "jwt: invalid issuer")
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = svc.Verify("")
	require.Error(t, err)
}
