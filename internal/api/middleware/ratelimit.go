package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sitepulse/sitepulse/internal/repository/redis"
)

// RateLimitMiddleware provides rate limiting functionality
type RateLimitMiddleware struct {
	cache   *redis.Cache
	limit   int
	enabled bool
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(cache *redis.Cache, limit int, enabled bool) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		cache:   cache,
		limit:   limit,
		enabled: enabled,
	}
}

// Handler returns the middleware handler
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip if rate limiting is disabled
		if !m.enabled || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Skip for health checks and metrics
		if r.URL.Path == "/health" || r.URL.Path == "/ready" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		key := rateLimitKey(r)

		allowed, count, err := m.cache.CheckRateLimit(r.Context(), key, m.limit)
		if err != nil {
			// On Redis error, allow the request
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		remaining := m.limit - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitKey derives the rate limit bucket from the client address
func rateLimitKey(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		// Take the first hop when the header carries a chain
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			ip = strings.TrimSpace(ip[:idx])
		}
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
		if idx := strings.LastIndexByte(ip, ':'); idx >= 0 {
			ip = ip[:idx]
		}
	}

	return "ip:" + ip
}
