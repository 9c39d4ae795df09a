package domain

// Common enum types used across the audit domain. Every enum has a
// documented fallback used by the sanitizer when external model output is
// missing or out of range.

// Category classifies a top-level issue. Section findings carry no category.
type Category string

const (
	CategoryClarity       Category = "clarity"
	CategoryLayout        Category = "layout"
	CategoryNavigation    Category = "navigation"
	CategoryAccessibility Category = "accessibility"
	CategoryTrust         Category = "trust"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryClarity, CategoryLayout, CategoryNavigation, CategoryAccessibility, CategoryTrust:
		return true
	}
	return false
}

// DefaultCategory is the sanitizer fallback for unknown categories.
const DefaultCategory = CategoryClarity

// Severity of an issue or finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// DefaultSeverity is the sanitizer fallback for unknown severities.
const DefaultSeverity = SeverityMedium

// Confidence expresses how much weight the enrichment engine puts behind a
// finding.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// DefaultConfidence is the sanitizer fallback for unknown confidence values.
const DefaultConfidence = ConfidenceMedium

// SourceType records how a finding was produced.
type SourceType string

const (
	SourceDeterministic SourceType = "deterministic"
	SourceHeuristic     SourceType = "heuristic"
	SourceAIInferred    SourceType = "ai_inferred"
)

func (s SourceType) IsValid() bool {
	switch s {
	case SourceDeterministic, SourceHeuristic, SourceAIInferred:
		return true
	}
	return false
}

// DefaultSourceType is the sanitizer fallback for unknown source types.
const DefaultSourceType = SourceAIInferred

// PriorityLabel buckets a finding by its priority score and effort.
type PriorityLabel string

const (
	PriorityCritical PriorityLabel = "critical"
	PriorityHigh     PriorityLabel = "high"
	PriorityMedium   PriorityLabel = "medium"
	PriorityLow      PriorityLabel = "low"
	PriorityQuickWin PriorityLabel = "quick_win"
)

func (p PriorityLabel) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow, PriorityQuickWin:
		return true
	}
	return false
}

// DefaultPriorityLabel is the sanitizer fallback for unknown priority labels.
const DefaultPriorityLabel = PriorityMedium

// RiskLevel is a coarse three-way risk classification used by the analyzers.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ClampScore bounds a score to [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
