// Package review turns raw or model-produced audit output into the strict,
// enriched Review shape. The sanitizer accepts arbitrary loose JSON, the
// fallback generator substitutes for the model on quota exhaustion, and the
// enrichment engine fills confidence, impact, effort and priority metadata
// on every finding.
package review

import (
	"regexp"
	"strings"

	"github.com/sitepulse/sitepulse/internal/domain"
)

// Enrichment inference is additive-only: a field that already holds a value
// is never overwritten, so enriching twice is a no-op on explicitly-set
// fields.

var (
	codeTokenPattern = regexp.MustCompile(`(?i)(<[a-z][a-z0-9-]*|aria-[a-z]+|[a-z-]+\s*:\s*[^;]+;|\b\d+px\b|class=|id=|\{|\})`)
	hedgePattern     = regexp.MustCompile(`(?i)\b(might|may|likely|could|appears|seems|probably|possibly)\b`)
	digitPattern     = regexp.MustCompile(`\d`)
)

// Effort keyword families, checked in order. Copy-level fixes are cheap,
// structural fixes moderate, architectural fixes expensive.
var effortFamilies = []struct {
	score    int
	keywords []string
}{
	{25, []string{"copy", "label", "wording", "text", "contrast", "color", "alt", "title", "caption", "rename"}},
	{50, []string{"layout", "nav", "navigation", "responsive", "spacing", "reorder", "reposition", "menu", "form"}},
	{80, []string{"architecture", "redesign", "rebuild", "restructure", "overhaul", "migrate", "rewrite"}},
}

const defaultEffort = 45

// Fixed fix-snippet library. Snippets are only ever drawn from here; the
// engine never fabricates free-form code.
var fixSnippets = []struct {
	keywords []string
	snippet  string
}{
	{
		keywords: []string{"contrast", "button"},
		snippet:  ".cta-button {\n  background: #1d4ed8;\n  color: #ffffff; /* 8.6:1 against the background */\n}",
	},
	{
		keywords: []string{"alt", "image"},
		snippet:  `<img src="hero.jpg" alt="Describe what the image shows, not the filename">`,
	},
	{
		keywords: []string{"heading"},
		snippet:  "<h1>One page-level heading</h1>\n<h2>Section headings step down one level at a time</h2>",
	},
	{
		keywords: []string{"form", "label"},
		snippet:  `<label for="email">Work email</label>` + "\n" + `<input id="email" type="email" autocomplete="email">`,
	},
}

// EnrichFinding fills missing enrichment fields on a finding. Fields that
// already hold a value are left untouched.
func EnrichFinding(f domain.Finding, category domain.Category) domain.Finding {
	if f.SourceType == "" {
		f.SourceType = inferSourceType(f.Evidence, f.Why)
	}
	if f.EvidenceWeight == 0 {
		f.EvidenceWeight = inferEvidenceWeight(f.Evidence, f.SourceType)
	}
	if f.Confidence == "" {
		f.Confidence = inferConfidence(f.SourceType, f.EvidenceWeight)
	}
	if f.ImpactScore == 0 {
		f.ImpactScore = impactFromSeverity(f.Severity)
	}
	if f.EffortScore == 0 {
		f.EffortScore = inferEffort(f.Title, f.Why)
	}
	if f.PriorityScore == 0 {
		f.PriorityScore = domain.ClampScore(f.ImpactScore * (110 - f.EffortScore) / 100)
	}
	if f.PriorityLabel == "" {
		f.PriorityLabel = priorityLabel(f.ImpactScore, f.EffortScore, f.PriorityScore)
	}
	if f.FixSnippet == "" {
		f.FixSnippet = inferFixSnippet(category, f.Title)
	}
	return f
}

// EnrichIssue enriches a categorized top-level issue.
func EnrichIssue(i domain.Issue) domain.Issue {
	i.Finding = EnrichFinding(i.Finding, i.Category)
	return i
}

// EnrichReview enriches every issue and finding in a review, in place on a
// copy.
func EnrichReview(r domain.Review) domain.Review {
	for idx := range r.Issues {
		r.Issues[idx] = EnrichIssue(r.Issues[idx])
	}
	for idx := range r.UX.Issues {
		r.UX.Issues[idx] = EnrichIssue(r.UX.Issues[idx])
	}
	for _, s := range r.Sections() {
		for idx := range s.Section.Findings {
			s.Section.Findings[idx] = EnrichFinding(s.Section.Findings[idx], "")
		}
	}
	return r
}

// inferSourceType reads the evidence and rationale text: code-like tokens
// mean the finding came from a deterministic check, hedging language means a
// heuristic, anything else is attributed to the model.
func inferSourceType(evidence, why string) domain.SourceType {
	combined := evidence + " " + why
	if codeTokenPattern.MatchString(combined) {
		return domain.SourceDeterministic
	}
	if hedgePattern.MatchString(combined) {
		return domain.SourceHeuristic
	}
	return domain.SourceAIInferred
}

func inferEvidenceWeight(evidence string, source domain.SourceType) int {
	weight := len(evidence)
	if weight > 70 {
		weight = 70
	}
	switch source {
	case domain.SourceDeterministic:
		weight += 25
	case domain.SourceHeuristic:
		weight += 10
	}
	if digitPattern.MatchString(evidence) {
		weight += 8
	}
	return domain.ClampScore(weight)
}

func inferConfidence(source domain.SourceType, weight int) domain.Confidence {
	switch {
	case source == domain.SourceDeterministic && weight >= 75:
		return domain.ConfidenceHigh
	case weight < 45 || source == domain.SourceAIInferred:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceMedium
	}
}

func impactFromSeverity(s domain.Severity) int {
	switch s {
	case domain.SeverityHigh:
		return 90
	case domain.SeverityLow:
		return 40
	default:
		return 65
	}
}

func inferEffort(title, why string) int {
	text := strings.ToLower(title + " " + why)
	// Architectural keywords win over cheaper families when both appear.
	for i := len(effortFamilies) - 1; i >= 0; i-- {
		for _, kw := range effortFamilies[i].keywords {
			if strings.Contains(text, kw) {
				return effortFamilies[i].score
			}
		}
	}
	return defaultEffort
}

// priorityLabel buckets a finding. Quick wins are checked first: high impact
// at low effort beats every other label.
func priorityLabel(impact, effort, priority int) domain.PriorityLabel {
	if impact >= 65 && effort <= 35 {
		return domain.PriorityQuickWin
	}
	switch {
	case priority >= 70:
		return domain.PriorityCritical
	case priority >= 55:
		return domain.PriorityHigh
	case priority >= 40:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func inferFixSnippet(category domain.Category, title string) string {
	text := strings.ToLower(string(category) + " " + title)
	for _, fs := range fixSnippets {
		for _, kw := range fs.keywords {
			if strings.Contains(text, kw) {
				return fs.snippet
			}
		}
	}
	return ""
}
