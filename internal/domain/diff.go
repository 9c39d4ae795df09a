package domain

import "time"

// TrendDirection classifies a metric's movement between two audits.
type TrendDirection string

const (
	TrendImproved  TrendDirection = "improved"
	TrendRegressed TrendDirection = "regressed"
	TrendStable    TrendDirection = "stable"
)

// MetricTrend is one highlighted metric movement between two audits. The
// raw display values are always reported; when either side is unparseable
// the direction is stable.
type MetricTrend struct {
	Metric    string         `json:"metric"`
	Direction TrendDirection `json:"direction"`
	Previous  string         `json:"previous"`
	Current   string         `json:"current"`
}

// IssueRef identifies an issue inside a diff by category and title.
type IssueRef struct {
	Category Category `json:"category"`
	Title    string   `json:"title"`
}

// AuditDiff is the derived, read-only comparison of two chronologically
// ordered audits of the same URL. It is never persisted as primary data and
// is always recomputed from two stored reviews.
type AuditDiff struct {
	URL          string    `json:"url"`
	PreviousAt   time.Time `json:"previous_at"`
	CurrentAt    time.Time `json:"current_at"`

	ScoreDelta         int  `json:"score_delta"`
	AccessibilityDelta int  `json:"accessibility_delta"`
	SEODelta           int  `json:"seo_delta"`
	VisualDelta        int  `json:"visual_delta"`
	// HealthDelta is nil unless both audits carry a health score; a missing
	// side is never substituted with zero.
	HealthDelta *int `json:"health_delta,omitempty"`

	NewIssues      []IssueRef `json:"new_issues"`
	ResolvedIssues []IssueRef `json:"resolved_issues"`

	MetricTrends []MetricTrend `json:"metric_trends,omitempty"`
}
