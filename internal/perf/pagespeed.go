// Package perf fetches Lighthouse category scores and core web vitals for
// a URL. The collector never propagates failure to its caller: when the
// upstream API is unreachable it returns a degraded uniform-50 report so
// scoring code never branches on a missing performance input.
package perf

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/domain"
)

const defaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Collector queries the PageSpeed Insights API.
type Collector struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCollector builds a collector. The API key may be empty; Google allows
// low-volume unauthenticated calls.
func NewCollector(apiKey string, logger *zap.Logger) *Collector {
	return &Collector{
		endpoint:   defaultEndpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// pagespeedResponse is the subset of the API response we read.
type pagespeedResponse struct {
	LighthouseResult struct {
		Categories map[string]struct {
			Score float64 `json:"score"`
		} `json:"categories"`
		Audits map[string]struct {
			DisplayValue string  `json:"displayValue"`
			Score        float64 `json:"score"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
}

var auditKeys = map[string]string{
	domain.MetricLCP: "largest-contentful-paint",
	domain.MetricFCP: "first-contentful-paint",
	domain.MetricCLS: "cumulative-layout-shift",
	domain.MetricTBT: "total-blocking-time",
	domain.MetricSI:  "speed-index",
}

// Collect fetches a performance report for the URL. On any failure it logs
// and returns the degraded report instead of an error.
func (c *Collector) Collect(ctx context.Context, pageURL string) *domain.PerformanceReport {
	report, err := c.fetch(ctx, pageURL)
	if err != nil {
		c.logger.Warn("performance fetch failed, using degraded report",
			zap.String("url", pageURL),
			zap.Error(err))
		return domain.DegradedPerformanceReport(time.Now().UTC())
	}
	return report
}

func (c *Collector) fetch(ctx context.Context, pageURL string) (*domain.PerformanceReport, error) {
	query := url.Values{}
	query.Set("url", pageURL)
	query.Set("strategy", "desktop")
	query.Add("category", "performance")
	query.Add("category", "accessibility")
	query.Add("category", "best-practices")
	query.Add("category", "seo")
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pagespeed API status %d", resp.StatusCode)
	}

	var payload pagespeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	report := &domain.PerformanceReport{
		Performance:   categoryScore(payload, "performance"),
		Accessibility: categoryScore(payload, "accessibility"),
		BestPractices: categoryScore(payload, "best-practices"),
		SEO:           categoryScore(payload, "seo"),
		Metrics:       make(map[string]domain.PerfMetric, len(auditKeys)),
		FetchedAt:     time.Now().UTC(),
	}

	for metric, auditKey := range auditKeys {
		audit, ok := payload.LighthouseResult.Audits[auditKey]
		if !ok {
			continue
		}
		report.Metrics[metric] = domain.PerfMetric{
			DisplayValue: audit.DisplayValue,
			Score:        domain.ClampScore(int(math.Round(audit.Score * 100))),
		}
	}

	return report, nil
}

// categoryScore converts Lighthouse's 0..1 category score to 0..100.
func categoryScore(payload pagespeedResponse, name string) int {
	category, ok := payload.LighthouseResult.Categories[name]
	if !ok {
		return 50
	}
	return domain.ClampScore(int(math.Round(category.Score * 100)))
}
