package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	userservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/user/service"
)

type contextKey string

const userIDKey contextKey = "userID"

// JWTAuthMiddleware validates Bearer tokens and injects the account id into
// the request context.
func JWTAuthMiddleware(authSvc *userservice.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr))
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr))
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			userID, err := authSvc.ValidateJWT(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
					slog.Any("error", err))
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated account id from the context.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(userIDKey).(uuid.UUID)
	return v
}

// RateLimitMiddleware enforces a token-bucket limit per authenticated user.
// It must run after JWTAuthMiddleware; unauthenticated requests share one
// bucket keyed by the nil id.
func RateLimitMiddleware(perSecond, burst int, logger *slog.Logger) func(http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = map[uuid.UUID]*rate.Limiter{}
	)
	limiterFor := func(id uuid.UUID) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		lim, ok := limiters[id]
		if !ok {
			lim = rate.NewLimiter(rate.Limit(perSecond), burst)
			limiters[id] = lim
		}
		return lim
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if !limiterFor(userID).Allow() {
				logger.Warn("rate limit exceeded",
					slog.String("user_id", userID.String()),
					slog.String("path", r.URL.Path))
				writeErrorHint(w, http.StatusTooManyRequests, "rate limit exceeded",
					"slow down; the limit is per user, not per connection")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
