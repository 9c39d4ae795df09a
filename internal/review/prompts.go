package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sitepulse/sitepulse/internal/analysis"
	"github.com/sitepulse/sitepulse/internal/domain"
)

// systemPrompt instructs the model to act as a UX reviewer and pins the
// output schema the sanitizer expects.
const systemPrompt = `You are a senior conversion-focused UX reviewer. You are given the extracted
signals of a single web page plus deterministic analyzer results. Produce an
honest, specific review of the page's user experience.

Return ONLY a JSON object with this exact shape, no markdown and no
explanations:

{
  "score": <0-100 overall UX score>,
  "issues": [
    {
      "category": "clarity|layout|navigation|accessibility|trust",
      "title": "<short issue title>",
      "why": "<why this hurts visitors>",
      "evidence": "<concrete evidence from the page>",
      "severity": "low|medium|high"
    }
  ],
  "top_improvements": [
    {"before": "<current state>", "after": "<suggested state>"}
  ],
  "ux": {"score": <0-100>, "issues": [...], "improvements": [...]},
  "accessibility": {"score": <0-100>, "findings": [{"title", "why", "evidence", "severity"}]},
  "seo": {"score": <0-100>, "findings": [...]},
  "visual": {"score": <0-100>, "findings": [...]}
}

Cap issues at 12 and top_improvements at 3. Base every claim on the
provided signals; never invent page content.`

// PromptInput bundles everything the prompt builder flattens for the model.
type PromptInput struct {
	Snapshot    domain.SignalSnapshot
	Content     analysis.SEOContentAnalysis
	Motion      analysis.MotionAnalysis
	UX          analysis.UXAnalysis
	Performance *domain.PerformanceReport
}

// BuildPrompts renders the system and user prompts for one audit.
func BuildPrompts(in PromptInput) (string, string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Page: %s\n\n", in.Snapshot.URL)

	fmt.Fprintf(&b, "## Extracted text\n")
	fmt.Fprintf(&b, "Title: %s\n", in.Snapshot.Text.Title)
	fmt.Fprintf(&b, "Meta description: %s\n", in.Snapshot.Text.MetaDescription)
	fmt.Fprintf(&b, "H1: %s\n", in.Snapshot.Text.H1)
	fmt.Fprintf(&b, "Headings: %s\n", strings.Join(in.Snapshot.Text.Headings, " | "))
	fmt.Fprintf(&b, "Buttons: %s\n", strings.Join(in.Snapshot.Text.Buttons, " | "))
	fmt.Fprintf(&b, "Forms: %d\n", in.Snapshot.Text.FormCount)
	fmt.Fprintf(&b, "Body text (truncated): %s\n\n", truncateEvidence(in.Snapshot.Text.MainText, 2000))

	appendSection(&b, "Accessibility signals", in.Snapshot.Accessibility)
	appendSection(&b, "SEO signals", in.Snapshot.SEO)
	appendSection(&b, "Content analysis", in.Content)
	appendSection(&b, "Motion analysis", in.Motion)
	appendSection(&b, "UX analysis", in.UX)
	if in.Performance != nil {
		appendSection(&b, "Performance report", in.Performance)
	}
	if in.Snapshot.ScreenshotRef != "" {
		fmt.Fprintf(&b, "Full-page screenshot reference: %s\n", in.Snapshot.ScreenshotRef)
	}

	return systemPrompt, b.String()
}

func appendSection(b *strings.Builder, name string, v any) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(b, "## %s\n%s\n\n", name, encoded)
}
