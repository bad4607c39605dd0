package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/staffdesk/internal/security/auth"
	"github.com/yourorg/staffdesk/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// isPublic reports whether the path is reachable without a token.
// Invitation declines stay public so a recipient without an account can
// turn an invitation down straight from the email link.
func isPublic(path string) bool {
	if path == "/healthz" || path == "/readyz" || path == "/metrics" ||
		path == "/api/auth/register" || path == "/api/auth/login" {
		return true
	}
	return strings.HasPrefix(path, "/api/invitations/") && strings.HasSuffix(path, "/decline")
}

func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
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

			if claims.ImpersonatorID != "" {
				log.Info("impersonated request",
					slog.String("impersonator_id", claims.ImpersonatorID),
					slog.String("user_id", claims.UserID),
					slog.String("path", r.URL.Path),
				)
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			// Credential endpoints get a tighter per-IP bucket to slow
			// down password guessing.
			if r.URL.Path == "/api/auth/login" || r.URL.Path == "/api/auth/register" {
				if !limiter.AllowStrict(r.RemoteAddr, 10, time.Minute) {
					log.Warn("auth rate limit exceeded", slog.String("remote_addr", r.RemoteAddr))
					http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
					return
				}
			}

			// Unauthenticated requests share one bucket keyed by client IP.
			key := r.RemoteAddr
			if c := r.Context().Value(ClaimsContextKey{}); c != nil {
				key = c.(*auth.Claims).UserID
			}

			if !limiter.Allow(key) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
