package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	m := NewRateLimitMiddleware(nil, 60, false)

	rec := httptest.NewRecorder()
	m.Handler(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/audits", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitMiddlewareNilCache(t *testing.T) {
	// Enabled but with no cache wired: requests pass untouched.
	m := NewRateLimitMiddleware(nil, 60, true)

	rec := httptest.NewRecorder()
	m.Handler(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/audits", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "203.0.113.9:54321",
			want:       "ip:203.0.113.9",
		},
		{
			name:       "forwarded-for single hop",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.7"},
			want:       "ip:198.51.100.7",
		},
		{
			name:       "forwarded-for chain takes first hop",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2, 10.0.0.3"},
			want:       "ip:198.51.100.7",
		},
		{
			name:       "real-ip fallback",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "192.0.2.44"},
			want:       "ip:192.0.2.44",
		},
		{
			name:       "forwarded-for wins over real-ip",
			remoteAddr: "10.0.0.1:80",
			headers: map[string]string{
				"X-Forwarded-For": "198.51.100.7",
				"X-Real-IP":       "192.0.2.44",
			},
			want: "ip:198.51.100.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/audits", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, rateLimitKey(req))
		})
	}
}
