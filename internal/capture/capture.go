// Package capture turns a live page into the signal snapshot the analyzers
// consume. The browser path uses Playwright for rendered geometry and
// runtime animation state; the static path parses fetched HTML only and is
// used by the CLI when no browser is installed.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/domain"
)

// StorageClient uploads captured screenshots.
type StorageClient interface {
	UploadScreenshot(ctx context.Context, key string, data []byte) (string, error)
}

// Config controls browser capture.
type Config struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	NavTimeout     time.Duration
}

// DefaultConfig returns capture defaults for a desktop audit.
func DefaultConfig() Config {
	return Config{
		Headless:       true,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		NavTimeout:     30 * time.Second,
	}
}

// Capturer drives a headless browser to produce signal snapshots.
type Capturer struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	config  Config
	storage StorageClient
	logger  *zap.Logger
}

// NewCapturer starts Playwright and launches the browser. Callers must
// Close the capturer when done.
func NewCapturer(config Config, storage StorageClient, logger *zap.Logger) (*Capturer, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(config.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	return &Capturer{
		pw:      pw,
		browser: browser,
		config:  config,
		storage: storage,
		logger:  logger,
	}, nil
}

// Close cleans up browser resources.
func (c *Capturer) Close() error {
	if c.browser != nil {
		c.browser.Close()
	}
	if c.pw != nil {
		return c.pw.Stop()
	}
	return nil
}

// Capture loads the page, takes a full-page screenshot and assembles the
// snapshot from the rendered DOM plus measured runtime signals.
func (c *Capturer) Capture(ctx context.Context, pageURL string) (domain.SignalSnapshot, error) {
	browserCtx, err := c.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  c.config.ViewportWidth,
			Height: c.config.ViewportHeight,
		},
	})
	if err != nil {
		return domain.SignalSnapshot{}, domain.ErrCaptureFailed("creating browser context", err)
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		return domain.SignalSnapshot{}, domain.ErrCaptureFailed("creating page", err)
	}
	defer page.Close()

	if _, err := page.Goto(pageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(c.config.NavTimeout.Milliseconds())),
	}); err != nil {
		return domain.SignalSnapshot{}, domain.ErrCaptureFailed("navigating to page", err)
	}

	html, err := page.Content()
	if err != nil {
		return domain.SignalSnapshot{}, domain.ErrCaptureFailed("reading page content", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.SignalSnapshot{}, domain.ErrCaptureFailed("parsing page content", err)
	}

	snap := ParseSignals(doc, pageURL, time.Now().UTC())

	if err := c.mergeRuntimeSignals(page, &snap); err != nil {
		// Static signals alone still make a valid snapshot.
		c.logger.Warn("runtime signal evaluation failed, keeping static signals",
			zap.String("url", pageURL),
			zap.Error(err))
	}

	if c.storage != nil {
		if ref, err := c.screenshot(ctx, page, pageURL); err != nil {
			c.logger.Warn("screenshot upload failed", zap.String("url", pageURL), zap.Error(err))
		} else {
			snap.ScreenshotRef = ref
		}
	}

	return snap, nil
}

// runtimeSignals is the shape returned by the in-page evaluation script.
type runtimeSignals struct {
	InfiniteAnimations     int     `json:"infiniteAnimations"`
	LongDurationAnimations int     `json:"longDurationAnimations"`
	CTAAboveFold           int     `json:"ctaAboveFold"`
	CTAViewportDepth       float64 `json:"ctaViewportDepth"`
	H1DominanceRatio       float64 `json:"h1DominanceRatio"`
	CTADominanceRatio      float64 `json:"ctaDominanceRatio"`
	LeftAlignRatio         float64 `json:"leftAlignRatio"`
	ReadingOrderIssues     int     `json:"readingOrderIssues"`
	LCPLikelyAnimated      bool    `json:"lcpLikelyAnimated"`
}

// runtimeScript measures what static parsing cannot: animation timing and
// element geometry relative to the viewport.
const runtimeScript = `() => {
	const out = {
		infiniteAnimations: 0, longDurationAnimations: 0,
		ctaAboveFold: 0, ctaViewportDepth: 1,
		h1DominanceRatio: 0.5, ctaDominanceRatio: 0.5,
		leftAlignRatio: 0.7, readingOrderIssues: 0, lcpLikelyAnimated: false
	};
	const vh = window.innerHeight || 1080;
	for (const anim of document.getAnimations ? document.getAnimations() : []) {
		const t = anim.effect && anim.effect.getTiming ? anim.effect.getTiming() : {};
		if (t.iterations === Infinity) out.infiniteAnimations++;
		if (typeof t.duration === 'number' && t.duration > 3000) out.longDurationAnimations++;
	}
	const ctas = [...document.querySelectorAll('button, a.button, a.btn, [role="button"]')];
	let firstCtaTop = null, left = 0, measured = 0;
	for (const el of ctas) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		measured++;
		if (r.top >= 0 && r.top < vh) out.ctaAboveFold++;
		if (firstCtaTop === null) firstCtaTop = r.top;
		if (r.left < window.innerWidth / 2) left++;
	}
	if (firstCtaTop !== null) out.ctaViewportDepth = Math.max(0, Math.min(3, firstCtaTop / vh));
	if (measured > 0) out.leftAlignRatio = left / measured;
	const h1 = document.querySelector('h1');
	if (h1) {
		const h1Size = parseFloat(getComputedStyle(h1).fontSize) || 16;
		const bodySize = parseFloat(getComputedStyle(document.body).fontSize) || 16;
		out.h1DominanceRatio = Math.min(1, h1Size / (bodySize * 3));
		if ([...h1.getAnimations ? h1.getAnimations() : []].length > 0) out.lcpLikelyAnimated = true;
	}
	let prevBottom = 0;
	for (const el of document.querySelectorAll('h1, h2, h3, p')) {
		const r = el.getBoundingClientRect();
		if (r.top + window.scrollY < prevBottom - 40) out.readingOrderIssues++;
		prevBottom = r.bottom + window.scrollY;
	}
	return out;
}`

func (c *Capturer) mergeRuntimeSignals(page playwright.Page, snap *domain.SignalSnapshot) error {
	raw, err := page.Evaluate(runtimeScript)
	if err != nil {
		return fmt.Errorf("evaluating runtime signals: %w", err)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding runtime signals: %w", err)
	}
	var rt runtimeSignals
	if err := json.Unmarshal(encoded, &rt); err != nil {
		return fmt.Errorf("decoding runtime signals: %w", err)
	}

	snap.Motion.InfiniteAnimations = rt.InfiniteAnimations
	snap.Motion.LongDurationAnimations = rt.LongDurationAnimations
	snap.Motion.LCPLikelyAnimated = rt.LCPLikelyAnimated
	snap.UX.CTAAboveFoldCount = rt.CTAAboveFold
	snap.UX.CTAViewportDepth = rt.CTAViewportDepth
	snap.UX.H1DominanceRatio = rt.H1DominanceRatio
	snap.UX.CTADominanceRatio = rt.CTADominanceRatio
	snap.UX.LeftAlignRatio = rt.LeftAlignRatio
	snap.UX.ReadingOrderIssues = rt.ReadingOrderIssues
	return nil
}

func (c *Capturer) screenshot(ctx context.Context, page playwright.Page, pageURL string) (string, error) {
	data, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return "", fmt.Errorf("taking screenshot: %w", err)
	}

	key := fmt.Sprintf("screenshots/%d-%s.png", time.Now().UnixNano(), sanitizeKey(pageURL))
	return c.storage.UploadScreenshot(ctx, key, data)
}

func sanitizeKey(pageURL string) string {
	replacer := strings.NewReplacer("https://", "", "http://", "", "/", "_", "?", "_", "&", "_", "#", "_", ":", "_")
	key := replacer.Replace(pageURL)
	if len(key) > 80 {
		key = key[:80]
	}
	return key
}

// FetchStatic retrieves and parses a page without a browser. Geometry
// signals keep their static approximations.
func FetchStatic(ctx context.Context, client *http.Client, pageURL string) (domain.SignalSnapshot, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.SignalSnapshot{}, domain.ErrInvalidURL(pageURL).WithCause(err)
	}
	req.Header.Set("User-Agent", "sitepulse-audit/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return domain.SignalSnapshot{}, domain.ErrCaptureFailed("fetching page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.SignalSnapshot{}, domain.ErrCaptureFailed(
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.SignalSnapshot{}, domain.ErrCaptureFailed("parsing page content", err)
	}

	return ParseSignals(doc, pageURL, time.Now().UTC()), nil
}
