package review

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/sitepulse/sitepulse/internal/domain"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"score": 80}`,
			want:  `{"score": 80}`,
		},
		{
			name:  "code fence",
			input: "```json\n{\"score\": 64}\n```",
			want:  `{"score": 64}`,
		},
		{
			name:  "fence without language tag",
			input: "```\n{\"score\": 12}\n```",
			want:  `{"score": 12}`,
		},
		{
			name:  "prose around the object",
			input: `Here is my review: {"score": 88} Hope that helps!`,
			want:  `{"score": 88}`,
		},
		{
			name:  "brace inside a string",
			input: `noise {"issues":[{"title":"brace } inside"}], "score": 33} trailing`,
			want:  `{"issues":[{"title":"brace } inside"}], "score": 33}`,
		},
		{
			name:    "no object at all",
			input:   "I could not produce a review for this page.",
			wantErr: true,
		},
		{
			name:    "unterminated object",
			input:   `partial {"score": 41, "issues": [`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractObject(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("extractObject(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractObject(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("extractObject(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseReviewDefaults(t *testing.T) {
	r, err := ParseReview(`{}`)
	if err != nil {
		t.Fatalf("ParseReview({}) unexpected error: %v", err)
	}

	if r.Score != 50 {
		t.Errorf("Score = %d, want 50", r.Score)
	}
	if r.UX.Score != 50 {
		t.Errorf("UX.Score = %d, want 50", r.UX.Score)
	}
	if r.Accessibility.Score != 42 {
		t.Errorf("Accessibility.Score = %d, want 42", r.Accessibility.Score)
	}
	if r.SEO.Score != 44 {
		t.Errorf("SEO.Score = %d, want 44", r.SEO.Score)
	}
	if r.Visual.Score != 45 {
		t.Errorf("Visual.Score = %d, want 45", r.Visual.Score)
	}
	if len(r.Issues) != 0 {
		t.Errorf("Issues length = %d, want 0", len(r.Issues))
	}
	// With no issues to borrow from, sections stay empty.
	if len(r.Accessibility.Findings) != 0 {
		t.Errorf("Accessibility.Findings length = %d, want 0", len(r.Accessibility.Findings))
	}
}

func TestSanitizeReviewScoreKeys(t *testing.T) {
	tests := []struct {
		name  string
		loose map[string]any
		want  int
	}{
		{"score key", map[string]any{"score": float64(72)}, 72},
		{"overall_score fallback", map[string]any{"overall_score": float64(81)}, 81},
		{"score wins over overall_score", map[string]any{"score": float64(30), "overall_score": float64(90)}, 30},
		{"clamped above", map[string]any{"score": float64(140)}, 100},
		{"clamped below", map[string]any{"score": float64(-5)}, 0},
		{"fractional rounds", map[string]any{"score": 61.6}, 62},
		{"non-numeric falls back", map[string]any{"score": "eighty"}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeReview(tt.loose).Score; got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSanitizeReviewEnumHandling(t *testing.T) {
	loose := map[string]any{
		"issues": []any{
			map[string]any{
				"category":   "vibes",
				"title":      "Something",
				"severity":   "catastrophic",
				"confidence": "absolute",
			},
			map[string]any{
				"category": "TRUST",
				"title":    "Another",
				"severity": " High ",
			},
		},
	}

	r := SanitizeReview(loose)
	if len(r.Issues) != 2 {
		t.Fatalf("Issues length = %d, want 2", len(r.Issues))
	}

	first := r.Issues[0]
	if first.Category != domain.DefaultCategory {
		t.Errorf("unknown category = %q, want %q", first.Category, domain.DefaultCategory)
	}
	if first.Severity != domain.DefaultSeverity {
		t.Errorf("unknown severity = %q, want %q", first.Severity, domain.DefaultSeverity)
	}
	// Present but invalid snaps to the fallback.
	if first.Confidence != domain.DefaultConfidence {
		t.Errorf("invalid confidence = %q, want %q", first.Confidence, domain.DefaultConfidence)
	}

	second := r.Issues[1]
	if second.Category != domain.CategoryTrust {
		t.Errorf("mixed-case category = %q, want %q", second.Category, domain.CategoryTrust)
	}
	if second.Severity != domain.SeverityHigh {
		t.Errorf("padded severity = %q, want %q", second.Severity, domain.SeverityHigh)
	}
	// Absent stays empty so enrichment can infer it later.
	if second.Confidence != "" {
		t.Errorf("absent confidence = %q, want empty", second.Confidence)
	}
	if second.SourceType != "" {
		t.Errorf("absent source_type = %q, want empty", second.SourceType)
	}
}

func TestSanitizeReviewCaps(t *testing.T) {
	var issues []any
	for i := 0; i < domain.MaxIssues+5; i++ {
		issues = append(issues, map[string]any{"category": "layout", "title": "issue"})
	}
	var improvements []any
	for i := 0; i < domain.MaxTopImprovements+4; i++ {
		improvements = append(improvements, map[string]any{"before": "a", "after": "b"})
	}
	var findings []any
	for i := 0; i < domain.MaxSectionFindings+3; i++ {
		findings = append(findings, map[string]any{"title": "finding"})
	}

	r := SanitizeReview(map[string]any{
		"issues":           issues,
		"top_improvements": improvements,
		"seo":              map[string]any{"findings": findings},
	})

	if len(r.Issues) != domain.MaxIssues {
		t.Errorf("Issues length = %d, want %d", len(r.Issues), domain.MaxIssues)
	}
	if len(r.TopImprovements) != domain.MaxTopImprovements {
		t.Errorf("TopImprovements length = %d, want %d", len(r.TopImprovements), domain.MaxTopImprovements)
	}
	if len(r.SEO.Findings) != domain.MaxSectionFindings {
		t.Errorf("SEO.Findings length = %d, want %d", len(r.SEO.Findings), domain.MaxSectionFindings)
	}
}

func TestSanitizeReviewSectionBackfill(t *testing.T) {
	var issues []any
	for i := 0; i < 8; i++ {
		issues = append(issues, map[string]any{
			"category": "accessibility",
			"title":    "Images missing alt text",
			"severity": "high",
			"evidence": "7 images without alt attributes",
		})
	}

	r := SanitizeReview(map[string]any{"issues": issues})

	if len(r.Accessibility.Findings) != domain.MaxSectionFromIssue {
		t.Fatalf("backfilled findings = %d, want %d", len(r.Accessibility.Findings), domain.MaxSectionFromIssue)
	}
	// Borrowed findings arrive enriched.
	f := r.Accessibility.Findings[0]
	if f.ImpactScore != 90 {
		t.Errorf("backfilled ImpactScore = %d, want 90", f.ImpactScore)
	}
	if f.PriorityScore == 0 {
		t.Error("backfilled PriorityScore is unset")
	}
	if f.Confidence == "" {
		t.Error("backfilled Confidence is unset")
	}
}

func TestSanitizeReviewUXMirrorsTopLevel(t *testing.T) {
	loose := map[string]any{
		"score": float64(77),
		"issues": []any{
			map[string]any{"category": "clarity", "title": "Vague headline", "severity": "medium"},
		},
		"top_improvements": []any{
			map[string]any{"before": "Submit", "after": "Get my quote"},
		},
	}

	r := SanitizeReview(loose)

	if r.UX.Score != 77 {
		t.Errorf("UX.Score = %d, want 77", r.UX.Score)
	}
	if !reflect.DeepEqual(r.UX.Issues, r.Issues) {
		t.Errorf("UX.Issues = %+v, want mirror of Issues", r.UX.Issues)
	}
	if !reflect.DeepEqual(r.UX.Improvements, r.TopImprovements) {
		t.Errorf("UX.Improvements = %+v, want mirror of TopImprovements", r.UX.Improvements)
	}
}

func TestSanitizeReviewIdempotent(t *testing.T) {
	raw := `{
		"score": 72,
		"issues": [
			{"category":"trust","title":"No testimonials","why":"Social proof reduces hesitation.","evidence":"0 testimonials found","severity":"high"},
			{"category":"layout","title":"Crowded hero","evidence":"14 elements above the fold","severity":"medium"}
		],
		"top_improvements": [{"before":"Submit","after":"Get my quote"}],
		"ux": {"score": 68},
		"accessibility": {"score": 55, "findings":[{"title":"Missing alt text","severity":"high","evidence":"7 images"}]},
		"seo": {"score": 61},
		"visual": {}
	}`

	first, err := ParseReview(raw)
	if err != nil {
		t.Fatalf("ParseReview: %v", err)
	}

	encoded, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := ParseReview(string(encoded))
	if err != nil {
		t.Fatalf("ParseReview of sanitized output: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("sanitizing a sanitized review changed it:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestLooseNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   int
		wantOK bool
	}{
		{"float64", float64(42.4), 42, true},
		{"float rounds half up", float64(42.5), 43, true},
		{"int", 17, 17, true},
		{"json.Number", json.Number("88"), 88, true},
		{"string", "42", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := looseNumber(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("looseNumber(%v) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
