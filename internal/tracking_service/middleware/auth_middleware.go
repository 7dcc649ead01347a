package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const AuthenticatedSubjectContextKey = ContextKey("authenticatedSubject")

// AuthConfig carries the credentials the middleware validates against. Both
// values come from explicit configuration, never ambient process state.
type AuthConfig struct {
	// JWTSecret verifies HS256 Bearer tokens.
	JWTSecret string
	// APIKeyHash is a bcrypt hash of the accepted API key. Empty disables the
	// ApiKey scheme.
	APIKeyHash string
}

// Auth validates "Bearer <jwt>" or "ApiKey <key>" Authorization headers and
// stores the authenticated subject in the request context.
func Auth(cfg AuthConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			var subject string
			switch parts[0] {
			case "Bearer":
				token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
					if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, jwt.ErrSignatureInvalid
					}
					return []byte(cfg.JWTSecret), nil
				})
				if err != nil || !token.Valid {
					logger.WarnContext(r.Context(), "Token validation failed", "error", err)
					http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
					return
				}
				if claims, ok := token.Claims.(jwt.MapClaims); ok {
					subject, _ = claims["sub"].(string)
				}
			case "ApiKey":
				if cfg.APIKeyHash == "" {
					http.Error(w, "ApiKey scheme not enabled", http.StatusUnauthorized)
					return
				}
				if err := bcrypt.CompareHashAndPassword([]byte(cfg.APIKeyHash), []byte(parts[1])); err != nil {
					logger.WarnContext(r.Context(), "API key validation failed")
					http.Error(w, "Invalid API key", http.StatusUnauthorized)
					return
				}
				subject = "api-key"
			default:
				logger.WarnContext(r.Context(), "Unsupported Authorization scheme", "scheme", parts[0])
				http.Error(w, "Unsupported Authorization scheme", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AuthenticatedSubjectContextKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
