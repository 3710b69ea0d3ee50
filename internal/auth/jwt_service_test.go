package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTServiceRoundTrip(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "salonpulse"})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID:  "user-1",
		Role:    "staff",
		StaffID: "staff-7",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "staff", claims.Role)
	require.Equal(t, "staff-7", claims.StaffID)
}

func TestJWTServiceRejectsExpiredToken(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	issuer, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return issued },
	})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTServiceRejectsWrongIssuer(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "other"})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "salonpulse"})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
}
