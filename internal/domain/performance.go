package domain

import "time"

// Metric names the diff engine knows how to trend.
const (
	MetricLCP = "LCP"
	MetricFCP = "FCP"
	MetricCLS = "CLS"
	MetricTBT = "TBT"
	MetricSI  = "SI"
)

// PerfMetric is one named performance metric with its human-readable value
// and a 0-100 score.
type PerfMetric struct {
	DisplayValue string `json:"display_value"`
	Score        int    `json:"score"`
}

// PerformanceReport is the per-audit snapshot supplied by the performance
// collaborator. The collaborator guarantees a valid report even on failure
// (uniform 50 scores), so consumers never need nil checks on a present
// report's fields.
type PerformanceReport struct {
	Performance   int `json:"performance"`
	Accessibility int `json:"accessibility"`
	BestPractices int `json:"best_practices"`
	SEO           int `json:"seo"`

	Metrics map[string]PerfMetric `json:"metrics"`

	FetchedAt time.Time `json:"fetched_at"`
}

// DegradedPerformanceReport is the uniform-50 fallback returned when the
// performance collaborator cannot reach its backend.
func DegradedPerformanceReport(now time.Time) *PerformanceReport {
	return &PerformanceReport{
		Performance:   50,
		Accessibility: 50,
		BestPractices: 50,
		SEO:           50,
		Metrics:       map[string]PerfMetric{},
		FetchedAt:     now,
	}
}
