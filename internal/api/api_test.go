package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/domain"
	"github.com/sitepulse/sitepulse/internal/observability"
	"github.com/sitepulse/sitepulse/internal/repository/postgres"
	"github.com/sitepulse/sitepulse/pkg/httputil"
)

const testAPIKey = "test-key"

// Registering the same collectors twice panics, so the whole test binary
// shares one Metrics instance.
var testMetrics = observability.NewMetrics("sitepulse_apitest")

// TestDB holds the test database connection and container
type TestDB struct {
	Container testcontainers.Container
	DB        *postgres.DB
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL container for testing
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sitepulse_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := postgres.NewFromDSN(connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
	}
}

// Cleanup terminates the container and closes connections
func (td *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if td.DB != nil {
		td.DB.Close()
	}
	if td.Container != nil {
		td.Container.Terminate(ctx)
	}
}

// TruncateTables clears all data from tables for test isolation
func (td *TestDB) TruncateTables(t *testing.T) {
	t.Helper()

	if _, err := td.DB.Exec("TRUNCATE TABLE audits"); err != nil {
		t.Logf("Warning truncating audits: %v", err)
	}
}

// setupTestRouter creates a router backed by the test database. The review
// service is left nil: audit creation past request validation needs a
// browser and a model, which integration tests do not exercise.
func setupTestRouter(testDB *TestDB) (*Router, *postgres.AuditRepository) {
	repo := postgres.NewAuditRepository(testDB.DB.DB)

	router := NewRouter(RouterConfig{
		DB:      testDB.DB,
		Audits:  repo,
		Metrics: testMetrics,
		Security: config.SecurityConfig{
			APIKeyHeader: "X-API-Key",
			APIKeys:      []string{testAPIKey},
		},
		Logger: zap.NewNop(),
	})

	return router, repo
}

func seedAudit(t *testing.T, repo *postgres.AuditRepository, url string, health int, createdAt time.Time) *domain.Audit {
	t.Helper()

	audit := &domain.Audit{
		ID:  uuid.New(),
		URL: url,
		Review: domain.Review{
			Score: health,
			Issues: []domain.Issue{
				{
					Category: domain.CategoryClarity,
					Finding: domain.Finding{
						Title:    "Headline does not state the offer",
						Why:      "Visitors cannot tell what the product does",
						Evidence: "title: Welcome",
						Severity: domain.SeverityHigh,
					},
				},
			},
			UX:            domain.UXSection{Score: health},
			Accessibility: domain.AuditSection{Score: health},
			SEO:           domain.AuditSection{Score: health},
			Visual:        domain.AuditSection{Score: health},
		},
		HealthScore: health,
		CreatedAt:   createdAt.UTC().Truncate(time.Microsecond),
	}

	require.NoError(t, repo.Create(context.Background(), audit))
	return audit
}

func doRequest(router *Router, method, path, body string, withKey bool) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if withKey {
		req.Header.Set("X-API-Key", testAPIKey)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAPIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	router, repo := setupTestRouter(testDB)

	t.Run("HealthEndpoint", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/health", "", false)

		assert.Equal(t, http.StatusOK, rec.Code)

		resp := decodeResponse(t, rec)
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "healthy", data["status"])
		assert.Equal(t, "sitepulse-api", data["service"])
	})

	t.Run("ReadyEndpoint", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/ready", "", false)

		assert.Equal(t, http.StatusOK, rec.Code)

		resp := decodeResponse(t, rec)
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "ready", data["status"])

		checks := data["checks"].(map[string]interface{})
		assert.Equal(t, "healthy", checks["database"])
	})

	t.Run("AuthRequired", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/v1/urls", "", false)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		resp := decodeResponse(t, rec)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
	})

	t.Run("AuthWrongKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/urls", nil)
		req.Header.Set("X-API-Key", "not-the-key")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_API_KEY", resp.Error.Code)
	})

	t.Run("CreateAuditValidation", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/api/v1/audits", `{"url": ""}`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, domain.ErrCodeValidation, resp.Error.Code)

		rec = doRequest(router, http.MethodPost, "/api/v1/audits", `{"url": "ftp://example.com"}`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp = decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, domain.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("GetAudit", func(t *testing.T) {
		testDB.TruncateTables(t)

		seeded := seedAudit(t, repo, "https://example.com", 82, time.Now())

		rec := doRequest(router, http.MethodGet, "/api/v1/audits/"+seeded.ID.String(), "", true)

		assert.Equal(t, http.StatusOK, rec.Code)

		resp := decodeResponse(t, rec)
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, seeded.ID.String(), data["id"])
		assert.Equal(t, "https://example.com", data["url"])
		assert.Equal(t, float64(82), data["health_score"])

		review := data["review"].(map[string]interface{})
		assert.Equal(t, float64(82), review["score"])
		issues := review["issues"].([]interface{})
		require.Len(t, issues, 1)
	})

	t.Run("GetAudit_InvalidID", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/v1/audits/not-a-uuid", "", true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, domain.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("GetAudit_NotFound", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/v1/audits/"+uuid.NewString(), "", true)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, domain.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("ListAudits", func(t *testing.T) {
		testDB.TruncateTables(t)

		base := time.Now().Add(-time.Hour)
		seedAudit(t, repo, "https://example.com", 70, base)
		seedAudit(t, repo, "https://example.com", 74, base.Add(10*time.Minute))
		seedAudit(t, repo, "https://example.com", 79, base.Add(20*time.Minute))
		seedAudit(t, repo, "https://other.example", 55, base)

		rec := doRequest(router, http.MethodGet, "/api/v1/audits?url=https://example.com", "", true)

		assert.Equal(t, http.StatusOK, rec.Code)

		resp := decodeResponse(t, rec)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 3, resp.Meta.Total)

		audits := resp.Data.([]interface{})
		require.Len(t, audits, 3)

		// Newest first
		first := audits[0].(map[string]interface{})
		assert.Equal(t, float64(79), first["health_score"])
	})

	t.Run("ListAudits_MissingURL", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/v1/audits", "", true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, domain.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("ListURLs", func(t *testing.T) {
		testDB.TruncateTables(t)

		now := time.Now()
		seedAudit(t, repo, "https://beta.example", 60, now)
		seedAudit(t, repo, "https://alpha.example", 72, now)

		rec := doRequest(router, http.MethodGet, "/api/v1/urls", "", true)

		assert.Equal(t, http.StatusOK, rec.Code)

		resp := decodeResponse(t, rec)
		urls := resp.Data.([]interface{})
		require.Len(t, urls, 2)
		assert.Equal(t, "https://alpha.example", urls[0])
		assert.Equal(t, "https://beta.example", urls[1])
	})

	t.Run("Diff_NeedsTwoAudits", func(t *testing.T) {
		testDB.TruncateTables(t)

		seedAudit(t, repo, "https://example.com", 70, time.Now())

		rec := doRequest(router, http.MethodGet, "/api/v1/audits/diff?url=https://example.com", "", true)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, domain.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("Diff", func(t *testing.T) {
		testDB.TruncateTables(t)

		base := time.Now().Add(-time.Hour)
		seedAudit(t, repo, "https://example.com", 70, base)
		seedAudit(t, repo, "https://example.com", 79, base.Add(30*time.Minute))

		rec := doRequest(router, http.MethodGet, "/api/v1/audits/diff?url=https://example.com", "", true)

		assert.Equal(t, http.StatusOK, rec.Code)

		resp := decodeResponse(t, rec)
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "https://example.com", data["url"])
		assert.Equal(t, float64(9), data["score_delta"])

		// Same single issue in both runs, so nothing appeared or resolved.
		assert.Empty(t, data["new_issues"])
		assert.Empty(t, data["resolved_issues"])

		// Neither audit carried a performance report.
		_, hasHealthDelta := data["health_delta"]
		assert.False(t, hasHealthDelta)
	})
}
