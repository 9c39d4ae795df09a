package review

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/sitepulse/sitepulse/internal/domain"
)

// Section score offsets applied when the model omits a section score.
// Empirically tuned against real audits; treat as tunable, not load-bearing.
const (
	accessibilityOffset = 8
	seoOffset           = 6
	visualOffset        = 5
)

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// ParseReview extracts and sanitizes a Review from raw model output. The
// text is first stripped of code fences; if it still does not parse as
// JSON, the outermost {...} span is located by brace matching. Only a
// complete absence of any object span is fatal.
func ParseReview(text string) (domain.Review, error) {
	raw, err := extractObject(text)
	if err != nil {
		return domain.Review{}, err
	}

	var loose map[string]any
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		return domain.Review{}, domain.ErrMalformedResponse(err)
	}

	return SanitizeReview(loose), nil
}

// extractObject returns the JSON object embedded in text.
func extractObject(text string) (string, error) {
	if m := codeFencePattern.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	}
	text = strings.TrimSpace(text)

	if json.Valid([]byte(text)) && strings.HasPrefix(text, "{") {
		return text, nil
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return "", domain.ErrMalformedResponse(fmt.Errorf("no object found in %d bytes of output", len(text)))
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if c == '{' {
			depth++
		} else if c == '}' {
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", domain.ErrMalformedResponse(fmt.Errorf("unterminated object in model output"))
}

// SanitizeReview normalizes an arbitrary untyped object into a Review that
// always satisfies the Review invariants: bounded arrays, enum-constrained
// fields and scores clamped to [0,100]. It never returns a partial review
// and sanitizing an already-sanitized review changes nothing.
func SanitizeReview(loose map[string]any) domain.Review {
	r := domain.Review{}

	r.Score = looseScore(loose, 50, "score", "overall_score")
	r.Issues = looseIssues(loose["issues"], domain.MaxIssues)
	r.TopImprovements = looseImprovements(loose["top_improvements"], domain.MaxTopImprovements)

	r.UX = looseUXSection(loose["ux"], r.Score, r.Issues, r.TopImprovements)
	r.Accessibility = looseSection(loose["accessibility"], r.Score-accessibilityOffset, r.Issues)
	r.SEO = looseSection(loose["seo"], r.Score-seoOffset, r.Issues)
	r.Visual = looseSection(loose["visual"], r.Score-visualOffset, r.Issues)

	return r
}

func looseUXSection(v any, overallScore int, issues []domain.Issue, improvements []domain.Improvement) domain.UXSection {
	m, _ := v.(map[string]any)
	ux := domain.UXSection{
		Score:        looseScore(m, overallScore, "score"),
		Issues:       looseIssues(mapKey(m, "issues"), domain.MaxIssues),
		Improvements: looseImprovements(mapKey(m, "improvements"), domain.MaxTopImprovements),
	}
	// A missing UX section mirrors the top level.
	if len(ux.Issues) == 0 {
		ux.Issues = issues
	}
	if len(ux.Improvements) == 0 {
		ux.Improvements = improvements
	}
	return ux
}

func looseSection(v any, defaultScore int, issues []domain.Issue) domain.AuditSection {
	m, _ := v.(map[string]any)
	section := domain.AuditSection{
		Score:    looseScore(m, domain.ClampScore(defaultScore), "score"),
		Findings: looseFindings(mapKey(m, "findings"), domain.MaxSectionFindings),
	}
	// Empty sections borrow the strongest top-level issues so no dimension
	// ships without substance.
	if len(section.Findings) == 0 && len(issues) > 0 {
		n := len(issues)
		if n > domain.MaxSectionFromIssue {
			n = domain.MaxSectionFromIssue
		}
		for _, issue := range issues[:n] {
			section.Findings = append(section.Findings, EnrichIssue(issue).AsFinding())
		}
	}
	return section
}

func looseIssues(v any, limit int) []domain.Issue {
	arr, _ := v.([]any)
	var issues []domain.Issue
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		issues = append(issues, domain.Issue{
			Category: looseCategory(m["category"]),
			Finding:  looseFinding(m),
		})
		if len(issues) == limit {
			break
		}
	}
	return issues
}

func looseFindings(v any, limit int) []domain.Finding {
	arr, _ := v.([]any)
	var findings []domain.Finding
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		findings = append(findings, looseFinding(m))
		if len(findings) == limit {
			break
		}
	}
	return findings
}

func looseFinding(m map[string]any) domain.Finding {
	f := domain.Finding{
		Title:    looseString(m["title"]),
		Why:      looseString(m["why"]),
		Evidence: looseString(m["evidence"]),
		Severity: looseSeverity(m["severity"]),

		EvidenceWeight: looseOptScore(m["evidence_weight"]),
		ImpactScore:    looseOptScore(m["impact_score"]),
		EffortScore:    looseOptScore(m["effort_score"]),
		PriorityScore:  looseOptScore(m["priority_score"]),
		FixSnippet:     looseString(m["fix_snippet"]),
	}
	// Enum enrichment fields: present-but-unknown values snap to the
	// documented fallback; absent values stay empty so the enrichment
	// engine can infer them.
	if v, ok := m["confidence"]; ok {
		f.Confidence = looseEnum(v, domain.Confidence.IsValid, domain.DefaultConfidence)
	}
	if v, ok := m["source_type"]; ok {
		f.SourceType = looseEnum(v, domain.SourceType.IsValid, domain.DefaultSourceType)
	}
	if v, ok := m["priority_label"]; ok {
		f.PriorityLabel = looseEnum(v, domain.PriorityLabel.IsValid, domain.DefaultPriorityLabel)
	}
	return f
}

func looseImprovements(v any, limit int) []domain.Improvement {
	arr, _ := v.([]any)
	var improvements []domain.Improvement
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		imp := domain.Improvement{
			Before: looseString(m["before"]),
			After:  looseString(m["after"]),
		}
		if imp.Before == "" && imp.After == "" {
			continue
		}
		improvements = append(improvements, imp)
		if len(improvements) == limit {
			break
		}
	}
	return improvements
}

// Loose-value combinators. Each one is the single place its "missing field
// becomes fallback value" rule lives.

func looseString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func looseCategory(v any) domain.Category {
	return looseEnum(v, domain.Category.IsValid, domain.DefaultCategory)
}

func looseSeverity(v any) domain.Severity {
	return looseEnum(v, domain.Severity.IsValid, domain.DefaultSeverity)
}

func looseEnum[T ~string](v any, valid func(T) bool, fallback T) T {
	s, _ := v.(string)
	value := T(strings.ToLower(strings.TrimSpace(s)))
	if valid(value) {
		return value
	}
	return fallback
}

// looseScore reads the first present numeric key, clamped to [0,100],
// falling back when no key parses.
func looseScore(m map[string]any, fallback int, keys ...string) int {
	for _, key := range keys {
		if n, ok := looseNumber(mapKey(m, key)); ok {
			return domain.ClampScore(n)
		}
	}
	return domain.ClampScore(fallback)
}

// looseOptScore clamps a numeric value, returning 0 (meaning "not set")
// when the value is absent or not a number.
func looseOptScore(v any) int {
	if n, ok := looseNumber(v); ok {
		return domain.ClampScore(n)
	}
	return 0
}

func looseNumber(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(math.Round(n)), true
	case int:
		return n, true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return int(math.Round(f)), true
		}
	}
	return 0, false
}

func mapKey(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}
