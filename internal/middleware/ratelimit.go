package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/arthive/arthive/internal/database"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
	"github.com/arthive/arthive/internal/pkg/response"
)

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// AuthRateLimitConfig returns a tighter configuration for the signup,
// signin, and verification endpoints.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
		BurstSize:         5,
	}
}

// RateLimit returns a rate limiting middleware using Redis.
func RateLimit(redis *database.Redis, cfg RateLimitConfig) func(next http.Handler) http.Handler {
	return RateLimitByKey(redis, cfg, nil)
}

// RateLimitByKey returns a rate limiter that uses a custom key extractor.
// A nil keyFunc falls back to the client IP.
func RateLimitByKey(redis *database.Redis, cfg RateLimitConfig, keyFunc func(*http.Request) string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ""
			if keyFunc != nil {
				clientID = keyFunc(r)
			}
			if clientID == "" {
				clientID = "ip:" + getRealIP(r)
			}

			key := fmt.Sprintf("ratelimit:%s", clientID)
			ctx := r.Context()
			windowDuration := time.Minute

			// Increment counter and get current value
			count, err := redis.IncrWithExpire(ctx, key, windowDuration)
			if err != nil {
				// On Redis error, allow the request
				next.ServeHTTP(w, r)
				return
			}

			limit := cfg.RequestsPerMinute
			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}

			resetTime := time.Now().Add(windowDuration).Unix()

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

			if int(count) > limit+cfg.BurstSize {
				w.Header().Set("Retry-After", strconv.Itoa(60))
				response.Error(w, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getRealIP extracts the real client IP, considering proxies.
func getRealIP(r *http.Request) string {
	// Check X-Forwarded-For header
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}

	// Check X-Real-IP header
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}

	return r.RemoteAddr
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for user ID.
	UserIDKey contextKey = "user_id"
	// UserEmailKey is the context key for the user's email address.
	UserEmailKey contextKey = "user_email"
)

// GetUserID retrieves the user ID from context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUserEmail retrieves the user email from context.
func GetUserEmail(ctx context.Context) string {
	if v := ctx.Value(UserEmailKey); v != nil {
		return v.(string)
	}
	return ""
}
