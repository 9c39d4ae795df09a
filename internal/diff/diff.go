// Package diff compares two audits of the same URL. It is a pure,
// stateless comparison: no stored intermediate state, every call recomputes
// from the two audits it is handed.
package diff

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sitepulse/sitepulse/internal/domain"
)

const maxIssueRefs = 8

// Tolerance bands below which a metric movement is reported as stable.
// Layout shift is unitless and tiny; timing metrics are compared in seconds.
const (
	clsTolerance    = 0.03
	timingTolerance = 0.15
)

var numericPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// Compute diffs the previous audit against the current one. A nil previous
// audit means there is nothing to compare and the result is nil, not a
// zeroed diff.
func Compute(previous, current *domain.Audit) *domain.AuditDiff {
	if previous == nil || current == nil {
		return nil
	}

	d := &domain.AuditDiff{
		URL:        current.URL,
		PreviousAt: previous.CreatedAt,
		CurrentAt:  current.CreatedAt,

		ScoreDelta:         current.Review.Score - previous.Review.Score,
		AccessibilityDelta: current.Review.Accessibility.Score - previous.Review.Accessibility.Score,
		SEODelta:           current.Review.SEO.Score - previous.Review.SEO.Score,
		VisualDelta:        current.Review.Visual.Score - previous.Review.Visual.Score,

		NewIssues:      issueRefs(current.Review.Issues, issueKeys(previous.Review.Issues)),
		ResolvedIssues: issueRefs(previous.Review.Issues, issueKeys(current.Review.Issues)),
	}

	if previous.Performance != nil && current.Performance != nil {
		delta := current.HealthScore - previous.HealthScore
		d.HealthDelta = &delta
		d.MetricTrends = metricTrends(previous.Performance, current.Performance)
	}

	return d
}

// issueKey is the identity used to match issues across audits. Titles are
// lowercased and whitespace-collapsed so cosmetic rewording does not count
// as a new issue.
func issueKey(issue domain.Issue) string {
	title := strings.ToLower(issue.Title)
	title = strings.Join(strings.Fields(title), " ")
	return string(issue.Category) + "|" + title
}

func issueKeys(issues []domain.Issue) map[string]struct{} {
	keys := make(map[string]struct{}, len(issues))
	for _, issue := range issues {
		keys[issueKey(issue)] = struct{}{}
	}
	return keys
}

// issueRefs returns the issues whose key is absent from exclude, preserving
// the source ordering, capped at maxIssueRefs.
func issueRefs(issues []domain.Issue, exclude map[string]struct{}) []domain.IssueRef {
	var refs []domain.IssueRef
	for _, issue := range issues {
		if _, ok := exclude[issueKey(issue)]; ok {
			continue
		}
		refs = append(refs, domain.IssueRef{Category: issue.Category, Title: issue.Title})
		if len(refs) == maxIssueRefs {
			break
		}
	}
	return refs
}

func metricTrends(previous, current *domain.PerformanceReport) []domain.MetricTrend {
	var trends []domain.MetricTrend
	for _, metric := range []string{domain.MetricLCP, domain.MetricFCP, domain.MetricCLS} {
		prev, prevOK := previous.Metrics[metric]
		curr, currOK := current.Metrics[metric]
		if !prevOK || !currOK {
			continue
		}
		trends = append(trends, domain.MetricTrend{
			Metric:    metric,
			Direction: trendDirection(metric, prev.DisplayValue, curr.DisplayValue),
			Previous:  prev.DisplayValue,
			Current:   curr.DisplayValue,
		})
	}
	return trends
}

// trendDirection compares two display values for a lower-is-better metric.
// Unparseable values on either side report stable rather than guessing.
func trendDirection(metric, previous, current string) domain.TrendDirection {
	prev, prevOK := parseSeconds(previous)
	curr, currOK := parseSeconds(current)
	if !prevOK || !currOK {
		return domain.TrendStable
	}

	tolerance := timingTolerance
	if metric == domain.MetricCLS {
		tolerance = clsTolerance
	}

	switch {
	case curr < prev-tolerance:
		return domain.TrendImproved
	case curr > prev+tolerance:
		return domain.TrendRegressed
	default:
		return domain.TrendStable
	}
}

// parseSeconds extracts the numeric part of a display value like "2.4 s",
// "180 ms" or "0.05". Millisecond values are converted to seconds; anything
// else is taken as already in the metric's native unit.
func parseSeconds(display string) (float64, bool) {
	match := numericPattern.FindString(display)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	if strings.Contains(strings.ToLower(display), "ms") {
		value /= 1000
	}
	return value, true
}
