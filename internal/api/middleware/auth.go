package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// AuthMiddleware handles API key authentication
type AuthMiddleware struct {
	header  string
	keys    []string
	devMode bool
}

// NewAuthMiddleware creates a new auth middleware. With no configured keys
// the middleware allows every request, which is only sensible in development.
func NewAuthMiddleware(header string, keys []string, devMode bool) *AuthMiddleware {
	if header == "" {
		header = "X-API-Key"
	}
	return &AuthMiddleware{
		header:  header,
		keys:    keys,
		devMode: devMode,
	}
}

// writeJSONError writes a JSON error response for auth failures
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if len(m.keys) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := m.extractAPIKey(r)
		if apiKey == "" {
			if m.devMode {
				next.ServeHTTP(w, r)
				return
			}
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key required")
			return
		}

		if !m.validKey(apiKey) {
			writeJSONError(w, http.StatusUnauthorized, "INVALID_API_KEY", "API key not recognized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isPublicPath checks if the path should skip authentication
func (m *AuthMiddleware) isPublicPath(path string) bool {
	publicPaths := []string{
		"/health",
		"/ready",
		"/metrics",
	}
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// extractAPIKey extracts the API key from request headers
func (m *AuthMiddleware) extractAPIKey(r *http.Request) string {
	apiKey := r.Header.Get(m.header)
	if apiKey != "" {
		return apiKey
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return ""
}

func (m *AuthMiddleware) validKey(apiKey string) bool {
	for _, k := range m.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(apiKey)) == 1 {
			return true
		}
	}
	return false
}
