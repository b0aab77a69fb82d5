package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/recordkeeper/internal/common/clock"
	"github.com/AlibekovAA/recordkeeper/internal/common/jwtverify"
)

type TokenIssuer struct {
	jwtSecret      []byte
	clock          clock.Clock
	accessTokenTTL time.Duration
	verifier       *jwtverify.Verifier
}

func NewTokenIssuer(jwtSecret string, accessTokenTTL time.Duration, clk clock.Clock) *TokenIssuer {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &TokenIssuer{
		jwtSecret:      []byte(jwtSecret),
		clock:          clk,
		accessTokenTTL: accessTokenTTL,
		verifier:       jwtverify.NewVerifier(jwtSecret, clk),
	}
}

// Issue signs an HS256 token for userID expiring accessTokenTTL from now.
func (ti *TokenIssuer) Issue(userID string) (string, error) {
	claims := jwtverify.NewTokenClaims(userID, ti.clock.Now(), ti.accessTokenTTL)

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.jwtSecret)
	if err != nil {
		return "", err
	}

	incrementAccessTokensIssued()
	return tokenString, nil
}

func (ti *TokenIssuer) Verify(tokenString string) (jwtverify.Claims, error) {
	return ti.verifier.Verify(tokenString)
}

// Verifier exposes the verifier sharing this issuer's secret and clock, for
// the auth gate.
func (ti *TokenIssuer) Verifier() *jwtverify.Verifier {
	return ti.verifier
}
