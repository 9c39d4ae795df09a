package analysis

import (
	"testing"

	"github.com/sitepulse/sitepulse/internal/domain"
)

func TestCTAQuality(t *testing.T) {
	tests := []struct {
		name string
		ux   domain.UXSignals
		want int
	}{
		{
			name: "neutral baseline",
			ux:   domain.UXSignals{},
			want: 60,
		},
		{
			name: "two vague labels",
			ux:   domain.UXSignals{VagueCTACount: 2},
			want: 42,
		},
		{
			name: "benefit led copy with urgency",
			ux:   domain.UXSignals{BenefitCTACount: 2, UrgencyCTACount: 1},
			want: 80,
		},
		{
			name: "vague penalty is capped",
			ux:   domain.UXSignals{VagueCTACount: 10},
			want: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ctaQuality(tt.ux); got.Strength != tt.want {
				t.Errorf("ctaQuality() = %d, want %d", got.Strength, tt.want)
			}
		})
	}
}

func TestCognitiveLoad(t *testing.T) {
	tests := []struct {
		name      string
		ux        domain.UXSignals
		wantIndex int
		wantRisk  domain.RiskLevel
	}{
		{
			name:      "clean page",
			ux:        domain.UXSignals{CTAAboveFoldCount: 1},
			wantIndex: 0,
			wantRisk:  domain.RiskLow,
		},
		{
			name: "competing CTAs and colors",
			ux: domain.UXSignals{
				CTAAboveFoldCount: 4,
				PrimaryCTACount:   3,
				CTAColorVariants:  4,
			},
			// 30 + 20 + 16
			wantIndex: 66,
			wantRisk:  domain.RiskMedium,
		},
		{
			name: "crowded hero tips into high",
			ux: domain.UXSignals{
				CTAAboveFoldCount: 4,
				PrimaryCTACount:   3,
				CTAColorVariants:  4,
				HeroElementCount:  16,
			},
			wantIndex: 86,
			wantRisk:  domain.RiskHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cognitiveLoad(tt.ux)
			if got.Index != tt.wantIndex {
				t.Errorf("cognitiveLoad() index = %d, want %d", got.Index, tt.wantIndex)
			}
			if got.Risk != tt.wantRisk {
				t.Errorf("cognitiveLoad() risk = %v, want %v", got.Risk, tt.wantRisk)
			}
		})
	}
}

func TestVisualHierarchy(t *testing.T) {
	got := visualHierarchy(domain.UXSignals{
		H1DominanceRatio:  0.8,
		CTADominanceRatio: 0.6,
		CTAColorVariants:  2,
	})
	// 0.4*80 + 0.4*60 + 0.2*100
	if got.Score != 76 {
		t.Errorf("visualHierarchy() score = %d, want 76", got.Score)
	}
	if got.ColorPenalty != 100 {
		t.Errorf("ColorPenalty = %d, want 100", got.ColorPenalty)
	}

	got = visualHierarchy(domain.UXSignals{CTAColorVariants: 5})
	if got.ColorPenalty != 55 {
		t.Errorf("ColorPenalty = %d, want 55 for five variants", got.ColorPenalty)
	}
}

func TestReadingFlow(t *testing.T) {
	tests := []struct {
		name        string
		ux          domain.UXSignals
		wantPattern string
		wantScore   int
	}{
		{
			name:        "left aligned f-pattern",
			ux:          domain.UXSignals{LeftAlignRatio: 0.8},
			wantPattern: "f-pattern",
			wantScore:   100,
		},
		{
			name:        "balanced z-pattern",
			ux:          domain.UXSignals{LeftAlignRatio: 0.5},
			wantPattern: "z-pattern",
			wantScore:   100,
		},
		{
			name:        "centered mixed layout with issues",
			ux:          domain.UXSignals{LeftAlignRatio: 0.3, ReadingOrderIssues: 4},
			wantPattern: "mixed",
			wantScore:   44,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readingFlow(tt.ux)
			if got.Pattern != tt.wantPattern {
				t.Errorf("readingFlow() pattern = %q, want %q", got.Pattern, tt.wantPattern)
			}
			if got.Score != tt.wantScore {
				t.Errorf("readingFlow() score = %d, want %d", got.Score, tt.wantScore)
			}
		})
	}
}

func TestConversionFriction(t *testing.T) {
	// Friendly form: progress indicator and trust badge present.
	low := conversionFriction(domain.UXSignals{
		FormFieldCount:       3,
		HasProgressIndicator: true,
		HasTrustBadge:        true,
	})
	if low.Score != 20 {
		t.Errorf("friction = %d, want 20 for friendly form", low.Score)
	}

	// Everything wrong at once.
	high := conversionFriction(domain.UXSignals{
		FormFieldCount: 12,
		RequiresPhone:  true,
		RequiresEmail:  true,
	})
	if high.Score != 92 {
		t.Errorf("friction = %d, want 92 for hostile form", high.Score)
	}
}

func TestTrustSignals(t *testing.T) {
	bare := trustSignals(domain.UXSignals{})
	if bare.Score != 25 {
		t.Errorf("trust = %d, want 25 baseline", bare.Score)
	}

	full := trustSignals(domain.UXSignals{
		HasTestimonials:   true,
		HasSocialProof:    true,
		HasSecurityBadges: true,
		HasAboutContact:   true,
	})
	if full.Score != 100 {
		t.Errorf("trust = %d, want 100 with every marker", full.Score)
	}
}

func TestExperienceQuality(t *testing.T) {
	got := experienceQuality(domain.UXSignals{
		HoverSignalCount: 2,
		FocusSignalCount: 1,
		CTAViewportDepth: 2.0,
		MenuItemCount:    10,
		NavDepth:         4,
	})

	if got.Microinteraction != 60 {
		t.Errorf("Microinteraction = %d, want 60", got.Microinteraction)
	}
	if got.CTAVisibility != 40 {
		t.Errorf("CTAVisibility = %d, want 40", got.CTAVisibility)
	}
	// 100 - 6*3 - 12*2
	if got.NavSimplicity != 58 {
		t.Errorf("NavSimplicity = %d, want 58", got.NavSimplicity)
	}
}

func TestAnalyzeUXFindings(t *testing.T) {
	snap := domain.SignalSnapshot{
		Text: domain.TextSignals{H1: "Grow your salon bookings faster"},
		UX: domain.UXSignals{
			PrimaryCTACount:  3,
			VagueCTACount:    2,
			CTAColorVariants: 4,
			FormFieldCount:   10,
			CTAViewportDepth: 2.5,
			LeftAlignRatio:   0.7,
		},
	}

	out := AnalyzeUX(snap, 65, 20)

	if out.Radar.Content != 65 {
		t.Errorf("Radar.Content = %d, want readability passthrough 65", out.Radar.Content)
	}
	if out.FirstImpression <= 0 || out.FirstImpression > 100 {
		t.Errorf("FirstImpression = %d, want in (0,100]", out.FirstImpression)
	}
	if len(out.Findings) == 0 {
		t.Fatal("expected findings for a page with competing CTAs and a buried primary action")
	}
	if len(out.Findings) > maxUXFindings {
		t.Errorf("findings = %d, want at most %d", len(out.Findings), maxUXFindings)
	}

	seen := make(map[string]bool)
	for _, f := range out.Findings {
		if seen[f.Title] {
			t.Errorf("duplicate finding title %q", f.Title)
		}
		seen[f.Title] = true
	}
	if !seen["Competing primary calls to action"] {
		t.Error("missing competing-CTA finding")
	}
	if !seen["Primary CTA buried below the fold"] {
		t.Error("missing buried-CTA finding")
	}
}

func TestOverallRisk(t *testing.T) {
	low := overallRisk(UXAnalysis{
		CognitiveLoad: CognitiveLoad{Index: 10},
		Friction:      ConversionFriction{Score: 20},
		Trust:         TrustSignals{Score: 90},
		CTAQuality:    CTAQuality{Strength: 80},
		Flow:          Flow{Score: 90},
	})
	if low != domain.RiskLow {
		t.Errorf("overallRisk = %v, want low", low)
	}

	high := overallRisk(UXAnalysis{
		CognitiveLoad: CognitiveLoad{Index: 80},
		Friction:      ConversionFriction{Score: 85},
		Trust:         TrustSignals{Score: 25},
		CTAQuality:    CTAQuality{Strength: 30},
		Flow:          Flow{Score: 40},
	})
	if high != domain.RiskHigh {
		t.Errorf("overallRisk = %v, want high", high)
	}
}

func TestRiskRadar(t *testing.T) {
	out := UXAnalysis{
		CognitiveLoad:   CognitiveLoad{Index: 30},
		VisualHierarchy: VisualHierarchy{Score: 80},
		CTAQuality:      CTAQuality{Strength: 60},
		Friction:        ConversionFriction{Score: 40},
		Trust:           TrustSignals{Score: 90},
		Experience:      ExperienceQuality{Microinteraction: 50, NavSimplicity: 70},
		Flow:            Flow{Score: 90},
	}

	radar := riskRadar(out, 65, 20)

	// 0.6*70 + 0.4*80
	if radar.Clarity != 74 {
		t.Errorf("Clarity = %d, want 74", radar.Clarity)
	}
	// 0.5*60 + 0.5*60
	if radar.Conversion != 60 {
		t.Errorf("Conversion = %d, want 60", radar.Conversion)
	}
	if radar.Trust != 90 {
		t.Errorf("Trust = %d, want 90", radar.Trust)
	}
	if radar.Content != 65 {
		t.Errorf("Content = %d, want 65", radar.Content)
	}
	// 0.6*80 + 0.4*50
	if radar.Interaction != 68 {
		t.Errorf("Interaction = %d, want 68", radar.Interaction)
	}
	// 0.7*70 + 0.3*90
	if radar.Navigation != 76 {
		t.Errorf("Navigation = %d, want 76", radar.Navigation)
	}
}

func TestBlend2(t *testing.T) {
	tests := []struct {
		name string
		a    int
		wa   float64
		b    int
		wb   float64
		want int
	}{
		{"even split", 80, 0.5, 60, 0.5, 70},
		{"rounds half up", 75, 0.5, 70, 0.5, 73},
		{"clamps high", 200, 0.7, 100, 0.3, 100},
		{"clamps low", -40, 0.5, 0, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := blend2(tt.a, tt.wa, tt.b, tt.wb); got != tt.want {
				t.Errorf("blend2(%d, %v, %d, %v) = %d, want %d", tt.a, tt.wa, tt.b, tt.wb, got, tt.want)
			}
		})
	}
}
