package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/recordkeeper/internal/auth/service"
	"github.com/AlibekovAA/recordkeeper/internal/common/clock"
	"github.com/AlibekovAA/recordkeeper/internal/common/jwtverify"
)

func TestTokenIssuer_Issue_Claims(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour, clock.NewMockClock(now))

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	var tc jwtverify.TokenClaims
	parsed, err := jwt.ParseWithClaims(token, &tc, func(*jwt.Token) (any, error) {
		return []byte(testJWTSecret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)

	assert.Equal(t, "HS256", parsed.Method.Alg())
	assert.Equal(t, "user-123", tc.UserID)
	assert.Equal(t, "user-123", tc.Subject)
	assert.Equal(t, now.Unix(), tc.IssuedAt.Unix())
	assert.Equal(t, now.Add(time.Hour).Unix(), tc.ExpiresAt.Unix())
}

func TestTokenIssuer_VerifyRoundTrip(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour, clk)

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestTokenIssuer_ExpiresAfterOneHour(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(start)
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour, clk)

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	clk.SetTime(start.Add(59 * time.Minute))
	_, err = issuer.Verify(token)
	require.NoError(t, err)

	clk.SetTime(start.Add(61 * time.Minute))
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, jwtverify.ErrInvalidToken)
}

func TestTokenIssuer_OtherSecretRejected(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour, clk)
	other := service.NewTokenIssuer("another-secret-that-is-also-32-bytes-long", time.Hour, clk)

	token, err := other.Issue("user-1")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, jwtverify.ErrInvalidToken)
}
