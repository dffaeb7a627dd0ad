package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/localhood/gatekeeper/internal/security/audit"
	"github.com/localhood/gatekeeper/internal/security/auth"
	"github.com/localhood/gatekeeper/internal/security/ratelimit"
)

type ComplexContextKey struct{}
type ClaimsContextKey struct{}

// publicPath reports whether a path is served without a resident token.
// Barrier scan endpoints authenticate with their per-barrier key instead.
func publicPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics" ||
		path == "/api/v1/auth/login" ||
		path == "/api/v1/barrier/entry" || path == "/api/v1/barrier/exit"
}

func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" && strings.HasPrefix(r.URL.Path, "/ws/") {
				// Browsers cannot set headers on websocket dials.
				if t := r.URL.Query().Get("token"); t != "" {
					authHeader = "Bearer " + t
				}
			}
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, ComplexContextKey{}, claims.ComplexID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if c := r.Context().Value(ClaimsContextKey{}); c != nil {
				key = c.(*auth.Claims).UserID
			} else if k := r.Header.Get("X-Barrier-Key"); k != "" {
				key = "barrier:" + k
			}

			if !limiter.Allow(key) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records state-changing requests before they are handled.
// Runs after JWT so the actor is known.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			complexID := GetComplexFromContext(r.Context())
			userID := ""
			if c := GetClaimsFromContext(r.Context()); c != nil {
				userID = c.UserID
			}

			if r.Method == http.MethodPost && r.URL.Path == "/api/v1/barrier/guest-access" {
				auditLog.LogAction(r.Context(), complexID, userID, "issue", "credential", "", "initiated", "")
			}
			if r.Method == http.MethodDelete {
				auditLog.LogAction(r.Context(), complexID, userID, "cancel", "credential", r.PathValue("id"), "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetComplexFromContext(ctx context.Context) string {
	if t := ctx.Value(ComplexContextKey{}); t != nil {
		return t.(string)
	}
	return ""
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
