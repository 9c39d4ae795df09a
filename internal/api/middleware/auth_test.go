package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareValidKey(t *testing.T) {
	m := NewAuthMiddleware("X-API-Key", []string{"secret-one", "secret-two"}, false)

	req := httptest.NewRequest("GET", "/api/v1/audits", nil)
	req.Header.Set("X-API-Key", "secret-two")
	rec := httptest.NewRecorder()

	m.Handler(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareBearerToken(t *testing.T) {
	m := NewAuthMiddleware("", []string{"secret"}, false)

	req := httptest.NewRequest("GET", "/api/v1/audits", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()

	m.Handler(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareMissingKey(t *testing.T) {
	m := NewAuthMiddleware("X-API-Key", []string{"secret"}, false)

	req := httptest.NewRequest("GET", "/api/v1/audits", nil)
	rec := httptest.NewRecorder()

	m.Handler(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
}

func TestAuthMiddlewareWrongKey(t *testing.T) {
	m := NewAuthMiddleware("X-API-Key", []string{"secret"}, false)

	req := httptest.NewRequest("GET", "/api/v1/audits", nil)
	req.Header.Set("X-API-Key", "guess")
	rec := httptest.NewRecorder()

	m.Handler(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_API_KEY", body.Error.Code)
}

func TestAuthMiddlewareNoKeysConfigured(t *testing.T) {
	m := NewAuthMiddleware("X-API-Key", nil, false)

	req := httptest.NewRequest("GET", "/api/v1/audits", nil)
	rec := httptest.NewRecorder()

	m.Handler(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareDevModeSkipsMissingKey(t *testing.T) {
	m := NewAuthMiddleware("X-API-Key", []string{"secret"}, true)

	// Missing key passes in dev mode.
	req := httptest.NewRequest("GET", "/api/v1/audits", nil)
	rec := httptest.NewRecorder()
	m.Handler(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A wrong key is still rejected.
	req = httptest.NewRequest("GET", "/api/v1/audits", nil)
	req.Header.Set("X-API-Key", "guess")
	rec = httptest.NewRecorder()
	m.Handler(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewarePublicPaths(t *testing.T) {
	m := NewAuthMiddleware("X-API-Key", []string{"secret"}, false)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		m.Handler(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
}
