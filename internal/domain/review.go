package domain

// Hard caps on review array lengths. The sanitizer truncates anything an
// external model returns beyond these.
const (
	MaxIssues           = 12
	MaxTopImprovements  = 3
	MaxSectionFindings  = 10
	MaxSectionFromIssue = 6
)

// Finding is one reported problem inside an audit section. Enrichment
// fields use the zero value to mean "not set"; the enrichment engine fills
// them and never overwrites a value that is already present.
type Finding struct {
	Title    string   `json:"title"`
	Why      string   `json:"why"`
	Evidence string   `json:"evidence"`
	Severity Severity `json:"severity"`

	Confidence     Confidence    `json:"confidence,omitempty"`
	EvidenceWeight int           `json:"evidence_weight,omitempty"`
	SourceType     SourceType    `json:"source_type,omitempty"`
	ImpactScore    int           `json:"impact_score,omitempty"`
	EffortScore    int           `json:"effort_score,omitempty"`
	PriorityScore  int           `json:"priority_score,omitempty"`
	PriorityLabel  PriorityLabel `json:"priority_label,omitempty"`
	FixSnippet     string        `json:"fix_snippet,omitempty"`
}

// Issue is a top-level finding with a category attached.
type Issue struct {
	Category Category `json:"category"`
	Finding
}

// AsFinding reshapes an issue into a section finding, dropping the category.
func (i Issue) AsFinding() Finding {
	return i.Finding
}

// Improvement is a before/after copy suggestion.
type Improvement struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// AuditSection is one scored dimension of a review.
type AuditSection struct {
	Score    int       `json:"score"`
	Findings []Finding `json:"findings"`
}

// UXSection mirrors the top-level review shape for the UX dimension.
type UXSection struct {
	Score        int           `json:"score"`
	Issues       []Issue       `json:"issues"`
	Improvements []Improvement `json:"improvements"`
}

// Review is the complete audit output. It is created fresh per analysis
// request and immutable once returned; persisted copies are independent
// snapshots with no shared state across requests.
type Review struct {
	Score           int           `json:"score"`
	Issues          []Issue       `json:"issues"`
	TopImprovements []Improvement `json:"top_improvements"`

	UX            UXSection    `json:"ux"`
	Accessibility AuditSection `json:"accessibility"`
	SEO           AuditSection `json:"seo"`
	Visual        AuditSection `json:"visual"`
}

// Sections returns the three non-UX audit sections keyed by name, in a
// stable order.
func (r *Review) Sections() []struct {
	Name    string
	Section *AuditSection
} {
	return []struct {
		Name    string
		Section *AuditSection
	}{
		{"accessibility", &r.Accessibility},
		{"seo", &r.SEO},
		{"visual", &r.Visual},
	}
}
