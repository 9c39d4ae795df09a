package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/diff"
	"github.com/sitepulse/sitepulse/internal/domain"
	"github.com/sitepulse/sitepulse/internal/observability"
	"github.com/sitepulse/sitepulse/internal/repository/postgres"
	"github.com/sitepulse/sitepulse/internal/repository/redis"
	"github.com/sitepulse/sitepulse/internal/review"
	"github.com/sitepulse/sitepulse/pkg/httputil"
)

// AuditHandler handles audit-related requests
type AuditHandler struct {
	service *review.Service
	repo    *postgres.AuditRepository
	cache   *redis.Cache
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(
	service *review.Service,
	repo *postgres.AuditRepository,
	cache *redis.Cache,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AuditHandler {
	return &AuditHandler{
		service: service,
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateAuditRequest is the request body for running an audit
type CreateAuditRequest struct {
	URL string `json:"url"`
}

// Create handles POST /api/v1/audits
func (h *AuditHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAuditRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	target, err := normalizeURL(req.URL)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	audit, err := h.service.AuditURL(r.Context(), target, review.TriggerAPI)
	if err != nil {
		h.logger.Error("Audit failed", zap.String("url", target), zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, audit)
}

// Get handles GET /api/v1/audits/{id}
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, domain.ErrCodeValidation, "Invalid audit ID format", nil)
		return
	}

	if h.cache != nil {
		if audit, err := h.cache.GetAudit(r.Context(), id); err == nil && audit != nil {
			httputil.JSON(w, http.StatusOK, audit)
			return
		}
	}

	audit, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetAudit(r.Context(), audit); err != nil {
			h.logger.Warn("Failed to cache audit", zap.Error(err))
		}
	}

	httputil.JSON(w, http.StatusOK, audit)
}

// List handles GET /api/v1/audits?url=...
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	target, err := normalizeURL(r.URL.Query().Get("url"))
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	pagination := httputil.GetPagination(r, 20, 100)

	audits, err := h.repo.GetLatestByURL(r.Context(), target, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list audits", zap.String("url", target), zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, audits, &httputil.Meta{
		Page:    pagination.Page,
		PerPage: pagination.PerPage,
		Total:   len(audits),
	})
}

// ListURLs handles GET /api/v1/urls
func (h *AuditHandler) ListURLs(w http.ResponseWriter, r *http.Request) {
	urls, err := h.repo.ListURLs(r.Context())
	if err != nil {
		h.logger.Error("Failed to list URLs", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, urls)
}

// Diff handles GET /api/v1/audits/diff?url=...
func (h *AuditHandler) Diff(w http.ResponseWriter, r *http.Request) {
	target, err := normalizeURL(r.URL.Query().Get("url"))
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if h.cache != nil {
		if d, err := h.cache.GetDiff(r.Context(), target); err == nil && d != nil {
			httputil.JSON(w, http.StatusOK, d)
			return
		}
	}

	current, previous, err := h.repo.GetLastTwoByURL(r.Context(), target)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if previous == nil {
		httputil.JSONError(w, http.StatusNotFound, domain.ErrCodeNotFound,
			"Need at least two audits to compute a diff", map[string]any{"url": target})
		return
	}

	d := diff.Compute(previous, current)
	h.metrics.DiffComputations.Inc()

	if h.cache != nil {
		if err := h.cache.SetDiff(r.Context(), d); err != nil {
			h.logger.Warn("Failed to cache diff", zap.Error(err))
		}
	}

	httputil.JSON(w, http.StatusOK, d)
}

// normalizeURL validates the audit target and rejects non-HTTP schemes
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrValidation("url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", domain.ErrInvalidURL(raw).WithCause(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", domain.ErrInvalidURL(raw)
	}
	if u.Host == "" {
		return "", domain.ErrInvalidURL(raw)
	}

	return u.String(), nil
}
