package review

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sitepulse/sitepulse/internal/domain"
)

// Fallback scoring weights. The generator runs only when the model provider
// reports quota exhaustion, so it favors stable, explainable adjustments
// over cleverness.
const (
	fallbackBase = 50

	titlePresentBonus   = 8
	titleMissingPenalty = 10

	maxFallbackEvidence = 140
)

var trustKeywordPattern = regexp.MustCompile(`(?i)\b(guarantee|secure|trusted|certified|testimonial|review|privacy|ssl|refund|money.?back)\b`)

// FallbackReview builds a complete Review from the snapshot alone. The
// output is shape-identical to a sanitized model review, including all four
// sections, so nothing downstream special-cases it.
func FallbackReview(snap domain.SignalSnapshot) domain.Review {
	score := domain.ClampScore(fallbackScore(snap))
	issues := fallbackIssues(snap)

	r := domain.Review{
		Score:           score,
		Issues:          issues,
		TopImprovements: fallbackImprovements(snap),
	}
	r.UX = domain.UXSection{
		Score:        score,
		Issues:       issues,
		Improvements: r.TopImprovements,
	}
	r.Accessibility = fallbackSection(score-accessibilityOffset, issues)
	r.SEO = fallbackSection(score-seoOffset, issues)
	r.Visual = fallbackSection(score-visualOffset, issues)
	return r
}

func fallbackScore(snap domain.SignalSnapshot) int {
	score := fallbackBase

	if strings.TrimSpace(snap.Text.Title) != "" {
		score += titlePresentBonus
	} else {
		score -= titleMissingPenalty
	}

	switch n := len(snap.Text.Headings); {
	case n == 0:
		score -= 12
	case n <= 2:
		score += 2
	case n <= 8:
		score += 8
	default:
		score += 4
	}

	switch n := len(snap.Text.Buttons); {
	case n == 0:
		score -= 8
	case n <= 2:
		score += 2
	case n <= 8:
		score += 6
	default:
		score += 3
	}

	switch n := snap.Text.FormCount; {
	case n >= 1 && n <= 3:
		score += 6
	case n > 3:
		score += 3
	}

	switch n := len(snap.Text.MainText); {
	case n < 200:
		score -= 10
	case n <= 1200:
		score += 8
	default:
		score += 4
	}

	if trustKeywordPattern.MatchString(snap.Text.MainText) {
		score += 6
	} else {
		score -= 4
	}

	return score
}

// fallbackIssues always emits the same six templates so fallback reviews
// are comparable run to run. Evidence is pulled from the snapshot and
// truncated rather than synthesized.
func fallbackIssues(snap domain.SignalSnapshot) []domain.Issue {
	headline := snap.Text.H1
	if headline == "" {
		headline = snap.Text.Title
	}

	return []domain.Issue{
		{
			Category: domain.CategoryClarity,
			Finding: domain.Finding{
				Title:    "Headline may not state the core value proposition",
				Why:      "Visitors decide within seconds whether the page is relevant to them.",
				Evidence: fallbackEvidence("headline", headline),
				Severity: domain.SeverityMedium,
			},
		},
		{
			Category: domain.CategoryLayout,
			Finding: domain.Finding{
				Title:    "Heading structure gives weak scanning cues",
				Why:      "Skimming readers rely on headings to find the section they need.",
				Evidence: fallbackEvidence("headings", strings.Join(snap.Text.Headings, " | ")),
				Severity: domain.SeverityMedium,
			},
		},
		{
			Category: domain.CategoryNavigation,
			Finding: domain.Finding{
				Title:    "Calls to action may be hard to locate",
				Why:      "A visitor who cannot find the next step leaves instead of converting.",
				Evidence: fallbackEvidence("buttons", strings.Join(snap.Text.Buttons, " | ")),
				Severity: domain.SeverityMedium,
			},
		},
		{
			Category: domain.CategoryAccessibility,
			Finding: domain.Finding{
				Title:    "Images without alt text block assistive technology",
				Why:      "Screen reader users get no information from unlabeled images.",
				Evidence: fallbackEvidence("missing alt attributes", fmt.Sprintf("%d", snap.Accessibility.MissingAltCount)),
				Severity: altSeverity(snap.Accessibility.MissingAltCount),
			},
		},
		{
			Category: domain.CategoryTrust,
			Finding: domain.Finding{
				Title:    "Few visible trust signals",
				Why:      "Testimonials, guarantees and contact details reduce hesitation to commit.",
				Evidence: fallbackEvidence("body text", snap.Text.MainText),
				Severity: domain.SeverityMedium,
			},
		},
		{
			Category: domain.CategoryClarity,
			Finding: domain.Finding{
				Title:    "Body copy length may not match visitor intent",
				Why:      "Pages that are too thin fail to persuade and too dense fail to get read.",
				Evidence: fallbackEvidence("main text length", fmt.Sprintf("%d characters", len(snap.Text.MainText))),
				Severity: domain.SeverityLow,
			},
		},
	}
}

func altSeverity(missing int) domain.Severity {
	if missing > 3 {
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}

func fallbackImprovements(snap domain.SignalSnapshot) []domain.Improvement {
	headline := snap.Text.H1
	if headline == "" {
		headline = "your current headline"
	}
	return []domain.Improvement{
		{
			Before: truncateEvidence(headline, maxFallbackEvidence),
			After:  "A single-sentence headline naming the outcome a visitor gets from this page.",
		},
		{
			Before: "Generic button labels such as \"Submit\" or \"Click here\".",
			After:  "Action labels that state the result, such as \"Get my free report\".",
		},
		{
			Before: "Trust signals buried below the fold or missing entirely.",
			After:  "A testimonial or guarantee placed next to the primary call to action.",
		},
	}
}

func fallbackSection(score int, issues []domain.Issue) domain.AuditSection {
	section := domain.AuditSection{Score: domain.ClampScore(score)}
	n := len(issues)
	if n > domain.MaxSectionFromIssue {
		n = domain.MaxSectionFromIssue
	}
	for _, issue := range issues[:n] {
		section.Findings = append(section.Findings, EnrichIssue(issue).AsFinding())
	}
	return section
}

func fallbackEvidence(label, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = "none found"
	}
	return truncateEvidence(label+": "+value, maxFallbackEvidence)
}

// truncateEvidence caps s at n runes so a cut never splits a multi-byte
// sequence quoted from page text.
func truncateEvidence(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
