package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const authClaimsKey contextKey = "authClaims"

// AuthConfig controls the gateway's bearer auth.
type AuthConfig struct {
	// Enabled turns enforcement on. When false every request passes.
	Enabled bool
	// JWTSecret verifies HMAC-signed tokens when set.
	JWTSecret string
	// DevToken is a static bearer accepted as-is, for local development
	// against a backend that has no token issuer running.
	DevToken string
}

// BearerAuth enforces a bearer token on API routes. A static dev token is
// checked first; anything else must be a valid HMAC JWT.
func BearerAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(auth, "Bearer ")

			if cfg.DevToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(cfg.DevToken)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			if cfg.JWTSecret == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			claims := jwt.RegisteredClaims{}
			parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !parsed.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), authClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns verified JWT claims if the request carried one.
func ClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(authClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}
