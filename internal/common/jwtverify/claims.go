package jwtverify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/recordkeeper/internal/common/clock"
	commonerrors "github.com/AlibekovAA/recordkeeper/internal/common/errors"
	"github.com/AlibekovAA/recordkeeper/internal/observability/metrics"
)

var (
	ErrNoToken = commonerrors.NewDomainError(
		"MISSING_AUTHORIZATION",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"Access denied. No token provided.",
	)

	// ErrInvalidToken covers bad signatures, malformed tokens and expiry alike.
	ErrInvalidToken = commonerrors.NewDomainError(
		"INVALID_TOKEN",
		commonerrors.CategoryAuth,
		http.StatusBadRequest,
		"Invalid token.",
	)
)

// Claims is the identity attached to an authenticated request.
type Claims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenClaims is the JWT payload. userId carries the user identifier and is
// mirrored into sub.
type TokenClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

func NewTokenClaims(userID string, issuedAt time.Time, ttl time.Duration) TokenClaims {
	return TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
}

type Verifier struct {
	secret []byte
	clock  clock.Clock
}

func NewVerifier(secret string, clk clock.Clock) *Verifier {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Verifier{secret: []byte(secret), clock: clk}
}

// Verify checks signature, algorithm and expiry. Every failure is reported as
// ErrInvalidToken with the parser error attached as cause.
func (v *Verifier) Verify(tokenString string) (Claims, error) {
	metrics.JWTValidationsTotal.Inc()

	var tc TokenClaims
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&tc,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	)
	if err == nil && !parsed.Valid {
		err = errors.New("token is not valid")
	}
	if err == nil && tc.UserID == "" {
		err = errors.New("missing userId claim")
	}
	if err != nil {
		metrics.JWTValidationsFailed.WithLabelValues(failureReason(err)).Inc()
		return Claims{}, ErrInvalidToken.WithCause(err)
	}

	claims := Claims{UserID: tc.UserID}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	return claims, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	default:
		return "invalid"
	}
}

type contextKey string

const claimsKey contextKey = "jwt_claims"

func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func FromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}

func (c Claims) String() string {
	return fmt.Sprintf("user=%s exp=%s", c.UserID, c.ExpiresAt.UTC().Format(time.RFC3339))
}
