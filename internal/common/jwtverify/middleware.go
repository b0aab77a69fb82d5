package jwtverify

import (
	"net/http"
	"strings"

	commonhttp "github.com/AlibekovAA/recordkeeper/internal/common/http"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
)

// Middleware is the auth gate for protected routes. A missing header or an
// empty bearer value is ErrNoToken (401); anything Verify rejects is
// ErrInvalidToken (400).
func Middleware(verifier *Verifier, log *logger.Logger) func(next http.Handler) http.Handler {
	errs := commonhttp.NewErrorHandler(log)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r.Header.Get("Authorization"))
			if tokenString == "" {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "auth_no_token",
				}).Warn("jwt auth failed: no token provided")
				errs.HandleError(w, r, ErrNoToken)
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "auth_invalid_token",
				}).Warnf("jwt auth failed: %v", err)
				errs.HandleError(w, r, err)
				return
			}

			log.WithFields(r.Context(), logger.Fields{
				"path":   r.URL.Path,
				"action": "auth_ok",
			}).Debugf("jwt auth ok: %s", claims)

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "Bearer" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
