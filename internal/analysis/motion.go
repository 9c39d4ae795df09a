package analysis

import "github.com/sitepulse/sitepulse/internal/domain"

// MotionType classifies one source of movement on the page.
type MotionType string

const (
	MotionCSS      MotionType = "css"
	MotionJS       MotionType = "js"
	MotionScroll   MotionType = "scroll"
	MotionCarousel MotionType = "carousel"
	MotionLottie   MotionType = "lottie"
	MotionVideo    MotionType = "video"
)

// MotionAnalysis is the typed risk classification of a page's animation
// signals. PerformanceCorrelation stays empty until CorrelateMotion runs
// with a performance report.
type MotionAnalysis struct {
	Types          []MotionType `json:"types"`
	AnimationCount int          `json:"animation_count"`
	RiskScore      int          `json:"risk_score"`
	// AccessibilitySupport is true when reduced-motion CSS is honored and
	// carousels, if any, can be paused.
	AccessibilitySupport   bool     `json:"accessibility_support"`
	Risks                  []string `json:"risks,omitempty"`
	PerformanceCorrelation []string `json:"performance_correlation,omitempty"`
}

// Per-factor caps for the additive risk score.
const (
	carouselRiskPer    = 12
	carouselRiskCap    = 20
	infiniteRiskPer    = 4
	infiniteRiskCap    = 18
	longRiskPer        = 4
	longRiskCap        = 14
	scrollExcessPer    = 2
	scrollExcessCap    = 8
	scrollExcessBeyond = 2
	flashingRisk       = 24
	lcpAnimatedRisk    = 10
	noReducedMotion    = 12
	noPauseControl     = 8
	supportCredit      = 6
)

// AnalyzeMotion converts raw animation counts and flags into a typed risk
// classification with a numeric risk score.
func AnalyzeMotion(m domain.MotionSignals) MotionAnalysis {
	out := MotionAnalysis{
		AnimationCount: m.CSSAnimations + m.CSSTransitions + m.JSAnimationHooks +
			m.ScrollRevealElements + m.AutoCarousels + m.LottieInstances +
			m.VideoElements + m.InfiniteAnimations + m.LongDurationAnimations,
		Risks: append([]string(nil), m.Risks...),
	}

	if m.CSSAnimations+m.CSSTransitions > 0 {
		out.Types = append(out.Types, MotionCSS)
	}
	if m.JSAnimationHooks > 0 {
		out.Types = append(out.Types, MotionJS)
	}
	if m.ScrollRevealElements > 0 {
		out.Types = append(out.Types, MotionScroll)
	}
	if m.AutoCarousels > 0 {
		out.Types = append(out.Types, MotionCarousel)
	}
	if m.LottieInstances > 0 {
		out.Types = append(out.Types, MotionLottie)
	}
	if m.VideoElements > 0 {
		out.Types = append(out.Types, MotionVideo)
	}

	risk := 0
	risk += capped(m.AutoCarousels*carouselRiskPer, carouselRiskCap)
	risk += capped(m.InfiniteAnimations*infiniteRiskPer, infiniteRiskCap)
	risk += capped(m.LongDurationAnimations*longRiskPer, longRiskCap)
	if excess := m.ScrollRevealElements - scrollExcessBeyond; excess > 0 {
		risk += capped(excess*scrollExcessPer, scrollExcessCap)
	}
	if m.FlashingRisk {
		risk += flashingRisk
	}
	if m.LCPLikelyAnimated {
		risk += lcpAnimatedRisk
	}
	if !m.ReducedMotionSupport {
		risk += noReducedMotion
	}
	if m.AutoCarousels > 0 && !m.PauseControlPresent {
		risk += noPauseControl
	}
	if m.ReducedMotionSupport && m.PauseControlPresent {
		risk -= supportCredit
	}
	out.RiskScore = domain.ClampScore(risk)

	out.AccessibilitySupport = m.ReducedMotionSupport && (m.PauseControlPresent || m.AutoCarousels == 0)

	return out
}

// CorrelateMotion links a motion analysis to a performance report, adding
// layout-shift and LCP penalties once real metric scores are known. Notes
// are deduplicated and the risk score is re-clamped.
func CorrelateMotion(motion MotionAnalysis, m domain.MotionSignals, perf *domain.PerformanceReport) MotionAnalysis {
	if perf == nil {
		return motion
	}

	risk := motion.RiskScore

	if metric, ok := perf.Metrics[domain.MetricCLS]; ok && metric.Score < 75 {
		if m.InfiniteAnimations > 0 || m.AutoCarousels > 0 || m.ScrollRevealElements > 0 {
			motion.PerformanceCorrelation = appendUnique(motion.PerformanceCorrelation,
				"animated elements likely contribute to layout shift (CLS below 75)")
			risk += 8
		}
	}
	if metric, ok := perf.Metrics[domain.MetricLCP]; ok && metric.Score < 75 && m.LCPLikelyAnimated {
		motion.PerformanceCorrelation = appendUnique(motion.PerformanceCorrelation,
			"largest contentful paint element appears animated (LCP below 75)")
		risk += 10
	}

	motion.RiskScore = domain.ClampScore(risk)
	return motion
}

func capped(v, cap int) int {
	if v > cap {
		return cap
	}
	return v
}

func appendUnique(notes []string, note string) []string {
	for _, n := range notes {
		if n == note {
			return notes
		}
	}
	return append(notes, note)
}
