package capture

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sitepulse/sitepulse/internal/domain"
)

// ctaTextPattern matches labels that read as a call to action.
var ctaTextPattern = regexp.MustCompile(`(?i)\b(sign up|get started|buy|subscribe|download|try|start|book|order|join|register|contact|demo|learn more|free)\b`)

var vagueCTAPattern = regexp.MustCompile(`(?i)^\s*(click here|submit|learn more|read more|more|here|go)\s*$`)

var benefitCTAPattern = regexp.MustCompile(`(?i)\b(free|save|get|grow|boost|improve|instant|guarantee)\b`)

var urgencyCTAPattern = regexp.MustCompile(`(?i)\b(now|today|limited|hurry|last chance|ends|only)\b`)

var trustTextPattern = regexp.MustCompile(`(?i)\b(testimonial|reviews?|trusted by|customers?|rated|stars)\b`)

// ParseSignals extracts every signal derivable from static HTML. Geometry
// and runtime signals (viewport positions, computed animations) are filled
// in afterwards by the browser capture path; the static values here are the
// degraded-but-usable baseline when no browser is available.
func ParseSignals(doc *goquery.Document, pageURL string, capturedAt time.Time) domain.SignalSnapshot {
	snap := domain.SignalSnapshot{
		URL:        pageURL,
		CapturedAt: capturedAt,
	}

	snap.Text = parseTextSignals(doc)
	snap.Accessibility = parseA11ySignals(doc)
	snap.SEO = parseSEOSignals(doc, snap.Text)
	snap.Motion = parseMotionSignals(doc)
	snap.UX = parseUXSignals(doc, snap.Text)

	return snap
}

func parseTextSignals(doc *goquery.Document) domain.TextSignals {
	text := domain.TextSignals{
		Title:           clean(doc.Find("title").First().Text()),
		MetaDescription: clean(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
		H1:              clean(doc.Find("h1").First().Text()),
	}

	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if t := clean(s.Text()); t != "" {
			text.Headings = append(text.Headings, t)
		}
	})
	doc.Find("h2, h3").Each(func(_ int, s *goquery.Selection) {
		if t := clean(s.Text()); t != "" {
			text.Subheadings = append(text.Subheadings, t)
		}
	})
	doc.Find(`button, a.button, a.btn, input[type="submit"], [role="button"]`).Each(func(_ int, s *goquery.Selection) {
		label := clean(s.Text())
		if label == "" {
			label = clean(s.AttrOr("value", ""))
		}
		if label != "" {
			text.Buttons = append(text.Buttons, label)
		}
	})

	text.FormCount = doc.Find("form").Length()

	// Strip non-content elements before flattening body text.
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, svg").Remove()
	text.MainText = clean(body.Text())

	return text
}

func parseA11ySignals(doc *goquery.Document) domain.A11ySignals {
	a11y := domain.A11ySignals{}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("alt"); !ok {
			a11y.MissingAltCount++
		}
	})

	doc.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		if t, _ := s.Attr("type"); t == "hidden" || t == "submit" || t == "button" {
			return
		}
		if _, ok := s.Attr("aria-label"); ok {
			return
		}
		if id, ok := s.Attr("id"); ok && doc.Find(`label[for="`+id+`"]`).Length() > 0 {
			return
		}
		if s.ParentsFiltered("label").Length() > 0 {
			return
		}
		a11y.UnlabeledInputCount++
	})

	a11y.HeadingOrderIssue = headingOrderBroken(doc)

	return a11y
}

// headingOrderBroken reports whether any heading skips more than one level
// past its predecessor, like an h4 directly after an h2.
func headingOrderBroken(doc *goquery.Document) bool {
	previous := 0
	broken := false
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := int(goquery.NodeName(s)[1] - '0')
		if previous > 0 && level > previous+1 {
			broken = true
		}
		previous = level
	})
	return broken
}

func parseSEOSignals(doc *goquery.Document, text domain.TextSignals) domain.SEOSignals {
	return domain.SEOSignals{
		TitleLength:        len(text.Title),
		HasMetaDescription: text.MetaDescription != "",
		H1Count:            doc.Find("h1").Length(),
		CTACount:           countCTAs(text.Buttons),
	}
}

func countCTAs(buttons []string) int {
	count := 0
	for _, label := range buttons {
		if ctaTextPattern.MatchString(label) {
			count++
		}
	}
	return count
}

// parseMotionSignals scans markup and inline styles. Counts that need a
// computed-style pass (infinite and long-duration animations) stay zero
// here and are populated by the browser path.
func parseMotionSignals(doc *goquery.Document) domain.MotionSignals {
	motion := domain.MotionSignals{}

	styles := doc.Find("style").Text()
	motion.CSSAnimations = strings.Count(styles, "@keyframes")
	motion.CSSTransitions = strings.Count(styles, "transition:") + strings.Count(styles, "transition ")
	motion.ReducedMotionSupport = strings.Contains(styles, "prefers-reduced-motion")

	scripts := doc.Find("script").Text()
	for _, hook := range []string{"requestAnimationFrame", "gsap", "anime(", "velocity("} {
		if strings.Contains(scripts, hook) {
			motion.JSAnimationHooks++
		}
	}

	motion.ScrollRevealElements = doc.Find(`[data-aos], [data-scroll], .aos-init, .reveal, .wow`).Length()
	motion.AutoCarousels = doc.Find(`[data-autoplay], .carousel[data-ride], .swiper-autoplay, .slick-autoplay`).Length()
	motion.LottieInstances = doc.Find(`lottie-player, [data-lottie], .lottie`).Length()
	motion.VideoElements = doc.Find(`video[autoplay], [data-video-background]`).Length()
	motion.PauseControlPresent = doc.Find(`[aria-label*="pause"], [data-pause], .pause-button`).Length() > 0

	if motion.AutoCarousels > 0 && !motion.PauseControlPresent {
		motion.Risks = append(motion.Risks, "auto-advancing carousel without a visible pause control")
	}
	if motion.ScrollRevealElements > 6 {
		motion.Risks = append(motion.Risks, "heavy scroll-triggered reveal usage may delay content visibility")
	}

	return motion
}

// parseUXSignals derives what it can without geometry. Counts that depend
// on the rendered viewport default to their content-order approximations.
func parseUXSignals(doc *goquery.Document, text domain.TextSignals) domain.UXSignals {
	ux := domain.UXSignals{}

	for _, label := range text.Buttons {
		if vagueCTAPattern.MatchString(label) {
			ux.VagueCTACount++
		}
		if benefitCTAPattern.MatchString(label) {
			ux.BenefitCTACount++
		}
		if urgencyCTAPattern.MatchString(label) {
			ux.UrgencyCTACount++
		}
	}

	ux.PrimaryCTACount = doc.Find(`.cta, .btn-primary, .button-primary, [data-cta="primary"]`).Length()
	if ux.PrimaryCTACount == 0 && len(text.Buttons) > 0 {
		ux.PrimaryCTACount = 1
	}

	hero := doc.Find("header, .hero, #hero, .banner").First()
	ux.HeroElementCount = hero.Find("*").Length()
	ux.HeroInteractiveCount = hero.Find("a, button, input, select").Length()

	forms := doc.Find("form").First()
	ux.FormFieldCount = forms.Find("input, select, textarea").Not(`[type="hidden"]`).Length()
	ux.RequiresPhone = forms.Find(`input[type="tel"], input[name*="phone"]`).Length() > 0
	ux.RequiresEmail = forms.Find(`input[type="email"], input[name*="email"]`).Length() > 0
	ux.HasProgressIndicator = doc.Find(`.progress, [role="progressbar"], .steps, .wizard-steps`).Length() > 0

	ux.HasTrustBadge = doc.Find(`.trust-badge, .badges, [alt*="badge"], [alt*="certified"]`).Length() > 0
	ux.HasTestimonials = doc.Find(`.testimonial, .testimonials, blockquote.review`).Length() > 0 ||
		trustTextPattern.MatchString(text.MainText)
	ux.HasSocialProof = doc.Find(`.logos, .clients, .social-proof, [class*="press"]`).Length() > 0
	ux.HasSecurityBadges = doc.Find(`[alt*="secure"], [alt*="ssl"], .security-badge`).Length() > 0
	ux.HasAboutContact = doc.Find(`a[href*="about"], a[href*="contact"]`).Length() > 0

	nav := doc.Find("nav").First()
	ux.MenuItemCount = nav.Find("a").Length()
	ux.NavDepth = navDepth(nav)
	ux.HamburgerAndDesktopNav = doc.Find(`.hamburger, .menu-toggle, [aria-label*="menu"]`).Length() > 0 &&
		ux.MenuItemCount > 0

	inlineStyles := doc.Find("style").Text()
	ux.HoverSignalCount = strings.Count(inlineStyles, ":hover")
	ux.FocusSignalCount = strings.Count(inlineStyles, ":focus")

	// Content-order approximations for geometry signals. The first three
	// buttons stand in for "above the fold"; the browser path overwrites
	// these with measured values.
	ux.CTAAboveFoldCount = min(countCTAs(text.Buttons), 3)
	ux.CTAColorVariants = ctaColorVariants(doc)
	ux.LeftAlignRatio = 0.7
	ux.H1DominanceRatio = 0.5
	ux.CTADominanceRatio = 0.5
	ux.CTAViewportDepth = 0.5

	return ux
}

func navDepth(nav *goquery.Selection) int {
	depth := 0
	if nav.Find("ul ul").Length() > 0 {
		depth = 2
	} else if nav.Find("ul").Length() > 0 {
		depth = 1
	}
	if nav.Find("ul ul ul").Length() > 0 {
		depth = 3
	}
	return depth
}

func ctaColorVariants(doc *goquery.Document) int {
	seen := map[string]struct{}{}
	doc.Find(`button[style], a.button[style], a.btn[style]`).Each(func(_ int, s *goquery.Selection) {
		style := s.AttrOr("style", "")
		if i := strings.Index(style, "background"); i >= 0 {
			seen[clean(style[i:])] = struct{}{}
		}
	})
	if len(seen) == 0 {
		return 1
	}
	return len(seen)
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
