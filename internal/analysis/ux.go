package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/sitepulse/sitepulse/internal/domain"
)

// CognitiveLoad measures how much is competing for attention above the fold.
type CognitiveLoad struct {
	Index int              `json:"index"`
	Risk  domain.RiskLevel `json:"risk"`
}

// VisualHierarchy blends dominance ratios into a single hierarchy score.
type VisualHierarchy struct {
	Score        int `json:"score"`
	ColorPenalty int `json:"color_penalty"`
}

// Flow describes the inferred reading pattern of the page.
type Flow struct {
	Pattern  string `json:"pattern"`
	Score    int    `json:"score"`
	ScanRisk bool   `json:"scan_risk"`
}

// CTAQuality scores call-to-action copy strength.
type CTAQuality struct {
	Strength int `json:"strength"`
}

// ConversionFriction scores how much the page asks of a visitor before
// converting.
type ConversionFriction struct {
	Score int `json:"score"`
}

// TrustSignals scores visible credibility markers.
type TrustSignals struct {
	Score int `json:"score"`
}

// ExperienceQuality covers microinteractions, CTA visibility and navigation
// simplicity.
type ExperienceQuality struct {
	Microinteraction int `json:"microinteraction"`
	CTAVisibility    int `json:"cta_visibility"`
	NavSimplicity    int `json:"nav_simplicity"`
}

// RiskRadar is the six-axis risk summary. Higher is healthier on every axis.
type RiskRadar struct {
	Clarity     int `json:"clarity"`
	Conversion  int `json:"conversion"`
	Trust       int `json:"trust"`
	Content     int `json:"content"`
	Interaction int `json:"interaction"`
	Navigation  int `json:"navigation"`
}

// UXAnalysis is the combined output of the seven UX sub-analyses.
type UXAnalysis struct {
	CognitiveLoad   CognitiveLoad      `json:"cognitive_load"`
	VisualHierarchy VisualHierarchy    `json:"visual_hierarchy"`
	Flow            Flow               `json:"flow"`
	CTAQuality      CTAQuality         `json:"cta_quality"`
	Friction        ConversionFriction `json:"friction"`
	Trust           TrustSignals       `json:"trust"`
	Experience      ExperienceQuality  `json:"experience"`

	FirstImpression int              `json:"first_impression"`
	Radar           RiskRadar        `json:"radar"`
	OverallRisk     domain.RiskLevel `json:"overall_risk"`

	Findings []domain.Finding `json:"findings,omitempty"`
}

const maxUXFindings = 8

var valuePropHints = []string{
	"free", "save", "grow", "faster", "easy", "instant", "results",
	"boost", "simple", "guarantee", "proven",
}

// AnalyzeUX runs the seven UX sub-analyses over a snapshot. The readability
// score feeds the content axis of the radar and the motion risk score feeds
// the interaction axis; both come from their own analyzers.
func AnalyzeUX(snap domain.SignalSnapshot, readability, motionRisk int) UXAnalysis {
	u := snap.UX

	out := UXAnalysis{
		CognitiveLoad:   cognitiveLoad(u),
		VisualHierarchy: visualHierarchy(u),
		Flow:            readingFlow(u),
		CTAQuality:      ctaQuality(u),
		Friction:        conversionFriction(u),
		Trust:           trustSignals(u),
		Experience:      experienceQuality(u),
	}

	out.FirstImpression = firstImpression(snap.Text, out)
	out.Radar = riskRadar(out, readability, motionRisk)
	out.OverallRisk = overallRisk(out)
	out.Findings = uxFindings(u, out)

	return out
}

// cognitiveLoad sums attention costs: extra above-fold CTAs, competing
// primary CTAs, color variants beyond two, and a crowded hero.
func cognitiveLoad(u domain.UXSignals) CognitiveLoad {
	index := 0
	if u.CTAAboveFoldCount > 1 {
		index += capped((u.CTAAboveFoldCount-1)*10, 35)
	}
	if u.PrimaryCTACount >= 3 {
		index += 20
	}
	if u.CTAColorVariants > 2 {
		index += capped((u.CTAColorVariants-2)*8, 20)
	}
	if u.HeroElementCount >= 14 || u.HeroInteractiveCount >= 5 {
		index += 20
	}
	index = domain.ClampScore(index)

	risk := domain.RiskLow
	switch {
	case index >= 70:
		risk = domain.RiskHigh
	case index >= 45:
		risk = domain.RiskMedium
	}
	return CognitiveLoad{Index: index, Risk: risk}
}

func visualHierarchy(u domain.UXSignals) VisualHierarchy {
	colorPenalty := 100
	if u.CTAColorVariants > 2 {
		colorPenalty = domain.ClampScore(100 - 15*(u.CTAColorVariants-2))
	}
	h1 := domain.ClampScore(int(math.Round(u.H1DominanceRatio * 100)))
	cta := domain.ClampScore(int(math.Round(u.CTADominanceRatio * 100)))
	score := 0.4*float64(h1) + 0.4*float64(cta) + 0.2*float64(colorPenalty)
	return VisualHierarchy{
		Score:        domain.ClampScore(int(math.Round(score))),
		ColorPenalty: colorPenalty,
	}
}

func readingFlow(u domain.UXSignals) Flow {
	pattern := "mixed"
	switch {
	case u.LeftAlignRatio >= 0.7:
		pattern = "f-pattern"
	case u.LeftAlignRatio >= 0.45:
		pattern = "z-pattern"
	}
	score := 100 - 14*u.ReadingOrderIssues
	if u.LeftAlignRatio >= 0.5 {
		score += 8
	}
	score = domain.ClampScore(score)
	return Flow{Pattern: pattern, Score: score, ScanRisk: score < 60}
}

func ctaQuality(u domain.UXSignals) CTAQuality {
	strength := 60 +
		capped(u.BenefitCTACount*8, 25) +
		capped(u.UrgencyCTACount*4, 10) -
		capped(u.VagueCTACount*9, 35)
	return CTAQuality{Strength: domain.ClampScore(strength)}
}

func conversionFriction(u domain.UXSignals) ConversionFriction {
	score := 20
	if u.FormFieldCount > 8 {
		score += 25
	}
	if u.RequiresPhone && u.RequiresEmail {
		score += 22
	}
	if !u.HasProgressIndicator {
		score += 15
	}
	if !u.HasTrustBadge {
		score += 10
	}
	return ConversionFriction{Score: domain.ClampScore(score)}
}

func trustSignals(u domain.UXSignals) TrustSignals {
	score := 25
	if u.HasTestimonials {
		score += 25
	}
	if u.HasSocialProof {
		score += 20
	}
	if u.HasSecurityBadges {
		score += 20
	}
	if u.HasAboutContact {
		score += 20
	}
	return TrustSignals{Score: domain.ClampScore(score)}
}

func experienceQuality(u domain.UXSignals) ExperienceQuality {
	micro := 35 + capped(u.HoverSignalCount*9, 36) + capped(u.FocusSignalCount*7, 28)

	visibility := 100 - int(math.Round(u.CTAViewportDepth*30))

	nav := 100
	if u.MenuItemCount > 7 {
		nav -= 6 * (u.MenuItemCount - 7)
	}
	if u.NavDepth > 2 {
		nav -= 12 * (u.NavDepth - 2)
	}
	if u.HamburgerAndDesktopNav {
		nav -= 15
	}

	return ExperienceQuality{
		Microinteraction: domain.ClampScore(micro),
		CTAVisibility:    domain.ClampScore(visibility),
		NavSimplicity:    domain.ClampScore(nav),
	}
}

// firstImpression blends five equally-weighted signals: headline length,
// a value-proposition keyword hint, CTA strength, inverse cognitive load
// and visual hierarchy.
func firstImpression(text domain.TextSignals, out UXAnalysis) int {
	headline := 40
	if n := len(strings.TrimSpace(text.H1)); n > 0 {
		switch {
		case n >= 20 && n <= 65:
			headline = 90
		case n < 20:
			headline = 70
		default:
			headline = 60
		}
	}

	valueProp := 55
	lower := strings.ToLower(text.H1 + " " + text.Title)
	for _, hint := range valuePropHints {
		if strings.Contains(lower, hint) {
			valueProp = 85
			break
		}
	}

	score := 0.2*float64(headline) +
		0.2*float64(valueProp) +
		0.2*float64(out.CTAQuality.Strength) +
		0.2*float64(100-out.CognitiveLoad.Index) +
		0.2*float64(out.VisualHierarchy.Score)
	return domain.ClampScore(int(math.Round(score)))
}

// blend2 is a clamped two-term weighted average.
func blend2(a int, wa float64, b int, wb float64) int {
	return domain.ClampScore(int(math.Round(wa*float64(a) + wb*float64(b))))
}

func riskRadar(out UXAnalysis, readability, motionRisk int) RiskRadar {
	return RiskRadar{
		Clarity:     blend2(100-out.CognitiveLoad.Index, 0.6, out.VisualHierarchy.Score, 0.4),
		Conversion:  blend2(out.CTAQuality.Strength, 0.5, 100-out.Friction.Score, 0.5),
		Trust:       domain.ClampScore(out.Trust.Score),
		Content:     domain.ClampScore(readability),
		Interaction: blend2(100-motionRisk, 0.6, out.Experience.Microinteraction, 0.4),
		Navigation:  blend2(out.Experience.NavSimplicity, 0.7, out.Flow.Score, 0.3),
	}
}

// overallRisk blends the sub-scores that most directly predict abandonment.
func overallRisk(out UXAnalysis) domain.RiskLevel {
	index := 0.25*float64(out.CognitiveLoad.Index) +
		0.25*float64(out.Friction.Score) +
		0.2*float64(100-out.Trust.Score) +
		0.15*float64(100-out.CTAQuality.Strength) +
		0.15*float64(100-out.Flow.Score)
	switch {
	case index >= 60:
		return domain.RiskHigh
	case index >= 35:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func uxFindings(u domain.UXSignals, out UXAnalysis) []domain.Finding {
	var findings []domain.Finding

	if u.PrimaryCTACount >= 3 {
		findings = append(findings, domain.Finding{
			Title:    "Competing primary calls to action",
			Why:      fmt.Sprintf("%d primary CTAs compete for the same click; visitors hesitate when nothing clearly leads.", u.PrimaryCTACount),
			Evidence: fmt.Sprintf("primary_cta_count=%d", u.PrimaryCTACount),
			Severity: domain.SeverityHigh,
		})
	}
	if u.HeroElementCount >= 14 || u.HeroInteractiveCount >= 5 {
		findings = append(findings, domain.Finding{
			Title:    "Crowded hero section",
			Why:      "The first screen carries too many elements for a visitor to anchor on the headline and primary action.",
			Evidence: fmt.Sprintf("hero_elements=%d hero_interactive=%d", u.HeroElementCount, u.HeroInteractiveCount),
			Severity: domain.SeverityMedium,
		})
	}
	if u.CTAColorVariants > 2 {
		findings = append(findings, domain.Finding{
			Title:    "Too many CTA color variants",
			Why:      fmt.Sprintf("%d button colors erode the visual signal of which action matters most.", u.CTAColorVariants),
			Evidence: fmt.Sprintf("cta_color_variants=%d", u.CTAColorVariants),
			Severity: domain.SeverityMedium,
		})
	}
	if u.VagueCTACount > 0 {
		findings = append(findings, domain.Finding{
			Title:    "Vague CTA labels",
			Why:      fmt.Sprintf("%d CTAs use generic labels like \"Learn more\"; benefit-led copy converts better.", u.VagueCTACount),
			Evidence: fmt.Sprintf("vague_cta_count=%d", u.VagueCTACount),
			Severity: domain.SeverityMedium,
		})
	}
	if u.FormFieldCount > 8 {
		findings = append(findings, domain.Finding{
			Title:    "Form asks too much up front",
			Why:      fmt.Sprintf("%d fields in the conversion form; every extra field measurably lowers completion.", u.FormFieldCount),
			Evidence: fmt.Sprintf("form_field_count=%d", u.FormFieldCount),
			Severity: domain.SeverityHigh,
		})
	}
	if u.RequiresPhone && u.RequiresEmail {
		findings = append(findings, domain.Finding{
			Title:    "Phone and email both required",
			Why:      "Requiring two contact channels doubles the perceived commitment; one is enough to follow up.",
			Evidence: "requires_phone=true requires_email=true",
			Severity: domain.SeverityMedium,
		})
	}
	if out.Trust.Score < 50 {
		findings = append(findings, domain.Finding{
			Title:    "Weak trust signals",
			Why:      "No testimonials, social proof or security markers are visible; unfamiliar visitors have nothing to lean on.",
			Evidence: fmt.Sprintf("trust_score=%d", out.Trust.Score),
			Severity: domain.SeverityMedium,
		})
	}
	if out.Experience.CTAVisibility < 60 {
		findings = append(findings, domain.Finding{
			Title:    "Primary CTA buried below the fold",
			Why:      fmt.Sprintf("The first CTA sits %.1f viewports down; most visitors never scroll that far.", u.CTAViewportDepth),
			Evidence: fmt.Sprintf("cta_viewport_depth=%.1f", u.CTAViewportDepth),
			Severity: domain.SeverityHigh,
		})
	}
	if out.Experience.NavSimplicity < 60 {
		findings = append(findings, domain.Finding{
			Title:    "Navigation is hard to scan",
			Why:      fmt.Sprintf("%d menu items nested %d levels deep exceed what visitors hold in working memory.", u.MenuItemCount, u.NavDepth),
			Evidence: fmt.Sprintf("menu_items=%d nav_depth=%d", u.MenuItemCount, u.NavDepth),
			Severity: domain.SeverityMedium,
		})
	}
	if out.Flow.ScanRisk {
		findings = append(findings, domain.Finding{
			Title:    "Reading order fights the layout",
			Why:      fmt.Sprintf("%d reading-order issues break the %s scan visitors naturally follow.", u.ReadingOrderIssues, out.Flow.Pattern),
			Evidence: fmt.Sprintf("reading_order_issues=%d", u.ReadingOrderIssues),
			Severity: domain.SeverityMedium,
		})
	}

	return dedupeFindings(findings, maxUXFindings)
}

// dedupeFindings removes findings with duplicate titles and caps the list.
func dedupeFindings(findings []domain.Finding, limit int) []domain.Finding {
	seen := make(map[string]bool, len(findings))
	out := findings[:0]
	for _, f := range findings {
		key := strings.ToLower(f.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	return out
}
