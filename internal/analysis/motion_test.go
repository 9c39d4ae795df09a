package analysis

import (
	"testing"

	"github.com/sitepulse/sitepulse/internal/domain"
)

func TestAnalyzeMotionRiskScore(t *testing.T) {
	tests := []struct {
		name    string
		signals domain.MotionSignals
		want    int
	}{
		{
			name: "static page with reduced motion support",
			signals: domain.MotionSignals{
				ReducedMotionSupport: true,
			},
			want: 0,
		},
		{
			name:    "static page without reduced motion support",
			signals: domain.MotionSignals{},
			want:    12,
		},
		{
			name: "respectful carousel nets six",
			signals: domain.MotionSignals{
				AutoCarousels:        1,
				ReducedMotionSupport: true,
				PauseControlPresent:  true,
			},
			want: 6,
		},
		{
			name: "carousel without any support",
			signals: domain.MotionSignals{
				AutoCarousels: 1,
			},
			want: 32,
		},
		{
			name: "flashing content dominates",
			signals: domain.MotionSignals{
				FlashingRisk:         true,
				ReducedMotionSupport: true,
			},
			want: 24,
		},
		{
			name: "per-factor caps hold",
			signals: domain.MotionSignals{
				AutoCarousels:          5,
				InfiniteAnimations:     10,
				LongDurationAnimations: 10,
				ScrollRevealElements:   20,
				ReducedMotionSupport:   true,
				PauseControlPresent:    true,
			},
			// 20 + 18 + 14 + 8 - 6 support credit
			want: 54,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeMotion(tt.signals)
			if got.RiskScore != tt.want {
				t.Errorf("AnalyzeMotion() RiskScore = %d, want %d", got.RiskScore, tt.want)
			}
		})
	}
}

func TestAnalyzeMotionTypes(t *testing.T) {
	got := AnalyzeMotion(domain.MotionSignals{
		CSSAnimations:   2,
		AutoCarousels:   1,
		LottieInstances: 1,
	})

	want := []MotionType{MotionCSS, MotionCarousel, MotionLottie}
	if len(got.Types) != len(want) {
		t.Fatalf("Types = %v, want %v", got.Types, want)
	}
	for i, w := range want {
		if got.Types[i] != w {
			t.Errorf("Types[%d] = %v, want %v", i, got.Types[i], w)
		}
	}

	if got.AnimationCount != 4 {
		t.Errorf("AnimationCount = %d, want 4", got.AnimationCount)
	}
}

func TestAnalyzeMotionAccessibilitySupport(t *testing.T) {
	tests := []struct {
		name    string
		signals domain.MotionSignals
		want    bool
	}{
		{
			name:    "reduced motion and pause control",
			signals: domain.MotionSignals{AutoCarousels: 1, ReducedMotionSupport: true, PauseControlPresent: true},
			want:    true,
		},
		{
			name:    "reduced motion with no carousels",
			signals: domain.MotionSignals{ReducedMotionSupport: true},
			want:    true,
		},
		{
			name:    "carousel without pause control",
			signals: domain.MotionSignals{AutoCarousels: 1, ReducedMotionSupport: true},
			want:    false,
		},
		{
			name:    "no reduced motion",
			signals: domain.MotionSignals{PauseControlPresent: true},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeMotion(tt.signals)
			if got.AccessibilitySupport != tt.want {
				t.Errorf("AccessibilitySupport = %v, want %v", got.AccessibilitySupport, tt.want)
			}
		})
	}
}

func TestCorrelateMotion(t *testing.T) {
	signals := domain.MotionSignals{
		AutoCarousels:        1,
		LCPLikelyAnimated:    true,
		ReducedMotionSupport: true,
		PauseControlPresent:  true,
	}
	base := AnalyzeMotion(signals)

	t.Run("nil report is a no-op", func(t *testing.T) {
		got := CorrelateMotion(base, signals, nil)
		if got.RiskScore != base.RiskScore || len(got.PerformanceCorrelation) != 0 {
			t.Errorf("CorrelateMotion(nil) changed analysis: %+v", got)
		}
	})

	t.Run("poor CLS and LCP add correlated risk", func(t *testing.T) {
		perf := &domain.PerformanceReport{
			Metrics: map[string]domain.PerfMetric{
				domain.MetricCLS: {Score: 40},
				domain.MetricLCP: {Score: 50},
			},
		}
		got := CorrelateMotion(base, signals, perf)
		if got.RiskScore != base.RiskScore+18 {
			t.Errorf("RiskScore = %d, want %d", got.RiskScore, base.RiskScore+18)
		}
		if len(got.PerformanceCorrelation) != 2 {
			t.Errorf("PerformanceCorrelation = %v, want 2 notes", got.PerformanceCorrelation)
		}
	})

	t.Run("healthy metrics add nothing", func(t *testing.T) {
		perf := &domain.PerformanceReport{
			Metrics: map[string]domain.PerfMetric{
				domain.MetricCLS: {Score: 95},
				domain.MetricLCP: {Score: 92},
			},
		}
		got := CorrelateMotion(base, signals, perf)
		if got.RiskScore != base.RiskScore {
			t.Errorf("RiskScore = %d, want %d", got.RiskScore, base.RiskScore)
		}
	})
}
