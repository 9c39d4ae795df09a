package domain

import "time"

// SignalSnapshot is the structured feature set captured from one page load.
// It is produced once by the capture collaborator and never mutated; all
// analyzers are pure functions over it. Counts are non-negative and boolean
// flags are independent of each other (nothing derived is stored twice).
type SignalSnapshot struct {
	URL        string    `json:"url"`
	CapturedAt time.Time `json:"captured_at"`

	Text          TextSignals   `json:"text"`
	Accessibility A11ySignals   `json:"accessibility"`
	SEO           SEOSignals    `json:"seo"`
	Motion        MotionSignals `json:"motion"`
	UX            UXSignals     `json:"ux"`

	// ScreenshotRef is an opaque URI assigned by the screenshot store. The
	// core passes it through to the model caller and never interprets it.
	ScreenshotRef string `json:"screenshot_ref,omitempty"`
}

// TextSignals carries the raw textual content used by the content analyzer
// and the model prompt.
type TextSignals struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	H1              string   `json:"h1"`
	Headings        []string `json:"headings"`
	Subheadings     []string `json:"subheadings"`
	Buttons         []string `json:"buttons"`
	FormCount       int      `json:"form_count"`
	MainText        string   `json:"main_text"`
}

// A11ySignals is the accessibility baseline counted straight off the DOM.
type A11ySignals struct {
	MissingAltCount     int  `json:"missing_alt_count"`
	UnlabeledInputCount int  `json:"unlabeled_input_count"`
	HeadingOrderIssue   bool `json:"heading_order_issue"`
}

// SEOSignals is the SEO baseline counted straight off the DOM.
type SEOSignals struct {
	TitleLength        int  `json:"title_length"`
	HasMetaDescription bool `json:"has_meta_description"`
	H1Count            int  `json:"h1_count"`
	CTACount           int  `json:"cta_count"`
}

// MotionSignals carries raw animation counts and flags for the motion
// analyzer.
type MotionSignals struct {
	CSSAnimations          int `json:"css_animations"`
	CSSTransitions         int `json:"css_transitions"`
	JSAnimationHooks       int `json:"js_animation_hooks"`
	ScrollRevealElements   int `json:"scroll_reveal_elements"`
	AutoCarousels          int `json:"auto_carousels"`
	LottieInstances        int `json:"lottie_instances"`
	VideoElements          int `json:"video_elements"`
	InfiniteAnimations     int `json:"infinite_animations"`
	LongDurationAnimations int `json:"long_duration_animations"`

	ReducedMotionSupport bool `json:"reduced_motion_support"`
	PauseControlPresent  bool `json:"pause_control_present"`
	FlashingRisk         bool `json:"flashing_risk"`
	LCPLikelyAnimated    bool `json:"lcp_likely_animated"`

	Risks []string `json:"risks,omitempty"`
}

// UXSignals carries the geometry and interaction baseline for the UX
// intelligence analyzer.
type UXSignals struct {
	CTAAboveFoldCount int `json:"cta_above_fold_count"`
	PrimaryCTACount   int `json:"primary_cta_count"`
	CTAColorVariants  int `json:"cta_color_variants"`
	VagueCTACount     int `json:"vague_cta_count"`
	BenefitCTACount   int `json:"benefit_cta_count"`
	UrgencyCTACount   int `json:"urgency_cta_count"`

	HeroElementCount     int     `json:"hero_element_count"`
	HeroInteractiveCount int     `json:"hero_interactive_count"`
	H1DominanceRatio     float64 `json:"h1_dominance_ratio"`
	CTADominanceRatio    float64 `json:"cta_dominance_ratio"`

	LeftAlignRatio     float64 `json:"left_align_ratio"`
	ReadingOrderIssues int     `json:"reading_order_issues"`

	FormFieldCount       int  `json:"form_field_count"`
	RequiresPhone        bool `json:"requires_phone"`
	RequiresEmail        bool `json:"requires_email"`
	HasProgressIndicator bool `json:"has_progress_indicator"`

	HasTrustBadge     bool `json:"has_trust_badge"`
	HasTestimonials   bool `json:"has_testimonials"`
	HasSocialProof    bool `json:"has_social_proof"`
	HasSecurityBadges bool `json:"has_security_badges"`
	HasAboutContact   bool `json:"has_about_contact"`

	HoverSignalCount int `json:"hover_signal_count"`
	FocusSignalCount int `json:"focus_signal_count"`

	// CTAViewportDepth is how far the first CTA sits below the first
	// viewport, in viewport heights. 0 means above the fold.
	CTAViewportDepth float64 `json:"cta_viewport_depth"`

	MenuItemCount          int  `json:"menu_item_count"`
	NavDepth               int  `json:"nav_depth"`
	HamburgerAndDesktopNav bool `json:"hamburger_and_desktop_nav"`
}
