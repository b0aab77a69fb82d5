package jwtverify_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/recordkeeper/internal/common/clock"
	commonhttp "github.com/AlibekovAA/recordkeeper/internal/common/http"
	"github.com/AlibekovAA/recordkeeper/internal/common/jwtverify"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
)

const testSecret = "test-secret-key-must-be-at-least-32-bytes-long"

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validToken(t *testing.T, userID string) string {
	return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwtverify.NewTokenClaims(userID, epoch, time.Hour))
}

func TestVerify_Success(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, clock.NewMockClock(epoch.Add(30*time.Minute)))

	claims, err := v.Verify(validToken(t, "user-123"))

	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, epoch.Add(time.Hour), claims.ExpiresAt.UTC())
}

func TestVerify_Expired(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, clock.NewMockClock(epoch.Add(time.Hour+time.Second)))

	_, err := v.Verify(validToken(t, "user-123"))

	assert.ErrorIs(t, err, jwtverify.ErrInvalidToken)
}

func TestVerify_TamperedSignature(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, clock.NewMockClock(epoch))

	a := strings.Split(validToken(t, "alice"), ".")
	b := strings.Split(validToken(t, "mallory"), ".")
	forged := strings.Join([]string{a[0], b[1], a[2]}, ".")

	_, err := v.Verify(forged)

	assert.ErrorIs(t, err, jwtverify.ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, clock.NewMockClock(epoch))
	token := sign(t, jwt.SigningMethodHS256, []byte("different-secret-key-must-be-at-least-32-bytes"), jwtverify.NewTokenClaims("u", epoch, time.Hour))

	_, err := v.Verify(token)

	assert.ErrorIs(t, err, jwtverify.ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, clock.NewMockClock(epoch))
	token := sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwtverify.NewTokenClaims("u", epoch, time.Hour))

	_, err := v.Verify(token)

	assert.ErrorIs(t, err, jwtverify.ErrInvalidToken)
}

func TestVerify_MissingUserID(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, clock.NewMockClock(epoch))
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour)),
	})

	_, err := v.Verify(token)

	assert.ErrorIs(t, err, jwtverify.ErrInvalidToken)
}

func TestVerify_MissingExpiry(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, clock.NewMockClock(epoch))
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwtverify.TokenClaims{UserID: "u"})

	_, err := v.Verify(token)

	assert.ErrorIs(t, err, jwtverify.ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, clock.NewMockClock(epoch))

	_, err := v.Verify("not.a.jwt")

	assert.ErrorIs(t, err, jwtverify.ErrInvalidToken)
}

func gate(t *testing.T) (http.Handler, *jwtverify.Claims) {
	t.Helper()
	var seen jwtverify.Claims
	v := jwtverify.NewVerifier(testSecret, clock.NewMockClock(epoch))
	h := jwtverify.Middleware(v, logger.NewWriter(io.Discard, "test", "info"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := jwtverify.FromContext(r.Context())
		require.True(t, ok)
		seen = claims
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func serve(h http.Handler, authorization string) (*httptest.ResponseRecorder, commonhttp.ErrorEnvelope) {
	req := httptest.NewRequest(http.MethodGet, "/recordings", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env commonhttp.ErrorEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestMiddleware_MissingHeader(t *testing.T) {
	h, _ := gate(t)

	rec, env := serve(h, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied. No token provided.", env.Message)
	assert.Equal(t, "MISSING_AUTHORIZATION", env.Code)
}

func TestMiddleware_EmptyBearer(t *testing.T) {
	h, _ := gate(t)

	for _, header := range []string{"Bearer ", "Bearer", "Bearer    "} {
		rec, env := serve(h, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, "Access denied. No token provided.", env.Message)
	}
}

func TestMiddleware_InvalidToken(t *testing.T) {
	h, _ := gate(t)

	rec, env := serve(h, "Bearer garbage")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid token.", env.Message)
	assert.Equal(t, "INVALID_TOKEN", env.Code)
}

func TestMiddleware_AttachesClaims(t *testing.T) {
	h, seen := gate(t)

	rec, _ := serve(h, "Bearer "+validToken(t, "user-42"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", seen.UserID)
}

func TestMiddleware_LogsVerifiedClaims(t *testing.T) {
	var buf bytes.Buffer
	v := jwtverify.NewVerifier(testSecret, clock.NewMockClock(epoch))
	h := jwtverify.Middleware(v, logger.NewWriter(&buf, "test", "debug"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec, _ := serve(h, "Bearer "+validToken(t, "user-7"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "jwt auth ok: user=user-7 exp=2024-01-01T13:00:00Z")
}
