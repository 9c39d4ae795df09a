package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/capture"
	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/domain"
	"github.com/sitepulse/sitepulse/internal/llm"
	"github.com/sitepulse/sitepulse/internal/perf"
	"github.com/sitepulse/sitepulse/internal/review"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	godotenv.Load()

	targetURL := flag.String("url", "", "Target URL to audit")
	static := flag.Bool("static", false, "Use a plain HTTP fetch instead of a browser")
	skipPerf := flag.Bool("skip-perf", false, "Skip the PageSpeed performance report")
	output := flag.String("output", "", "Output file for JSON result (empty for stdout summary)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Audit timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	if *targetURL == "" {
		red.Println("✗ -url is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadWithDefaults()
	if err != nil {
		red.Printf("✗ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Claude.APIKey == "" {
		red.Println("✗ ANTHROPIC_API_KEY not set")
		fmt.Println("  Add it to .env file or set environment variable")
		os.Exit(1)
	}

	var logger *zap.Logger
	if *verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		zcfg := zap.NewProductionConfig()
		zcfg.OutputPaths = []string{"/dev/null"}
		logger, _ = zcfg.Build()
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	bold.Printf("SitePulse audit: %s\n", *targetURL)
	fmt.Println()

	startTime := time.Now()

	// Capture
	snap, err := runCapture(ctx, cfg, *targetURL, *static, logger)
	if err != nil {
		red.Printf("✗ Capture failed: %v\n", err)
		os.Exit(1)
	}
	green.Printf("✓ Captured %d headings, %d buttons, %d forms, %d chars of text\n",
		len(snap.Text.Headings), len(snap.Text.Buttons), snap.Text.FormCount, len(snap.Text.MainText))

	// Performance
	var perfReport *domain.PerformanceReport
	if *skipPerf {
		yellow.Println("⚡ Performance collection skipped")
		perfReport = domain.DegradedPerformanceReport(time.Now().UTC())
	} else {
		perfReport = runSpinner("Collecting performance report...", func() *domain.PerformanceReport {
			return perf.NewCollector(cfg.PageSpeed.APIKey, logger).Collect(ctx, *targetURL)
		})
		green.Printf("✓ Performance %d, accessibility %d, SEO %d\n",
			perfReport.Performance, perfReport.Accessibility, perfReport.SEO)
	}

	// Model review
	model, err := llm.NewClient(llm.Config{
		APIKey:       cfg.Claude.APIKey,
		Model:        cfg.Claude.Model,
		Timeout:      cfg.Claude.Timeout,
		RateLimitRPM: cfg.Claude.RateLimitRPM,
		CacheTTL:     cfg.Claude.CacheTTL,
		MaxRetries:   cfg.Claude.MaxRetries,
	})
	if err != nil {
		red.Printf("✗ Failed to create Claude client: %v\n", err)
		os.Exit(1)
	}

	service := review.NewService(nil, nil, nil, model, logger, review.Options{})

	var audit *domain.Audit
	audit = runSpinner("Reviewing with Claude...", func() *domain.Audit {
		a, rerr := service.Review(ctx, snap, perfReport)
		if rerr != nil {
			err = rerr
			return nil
		}
		return a
	})
	if err != nil {
		red.Printf("✗ Review failed: %v\n", err)
		os.Exit(1)
	}
	if audit.Fallback {
		yellow.Println("⚡ Model unavailable, heuristic fallback review used")
	}

	printSummary(audit, time.Since(startTime))

	if *output != "" {
		data, err := json.MarshalIndent(audit, "", "  ")
		if err != nil {
			red.Printf("✗ Failed to marshal audit: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*output, data, 0644); err != nil {
			red.Printf("✗ Failed to write %s: %v\n", *output, err)
			os.Exit(1)
		}
		fmt.Printf("\nJSON output saved to: %s\n", *output)
	}
}

func runCapture(ctx context.Context, cfg *config.Config, url string, static bool, logger *zap.Logger) (domain.SignalSnapshot, error) {
	if static {
		return capture.FetchStatic(ctx, &http.Client{Timeout: 30 * time.Second}, url)
	}

	capturer, err := capture.NewCapturer(capture.Config{
		Headless:       cfg.Capture.Headless,
		ViewportWidth:  cfg.Capture.ViewportWidth,
		ViewportHeight: cfg.Capture.ViewportHeight,
		NavTimeout:     cfg.Capture.NavTimeout,
	}, nil, logger)
	if err != nil {
		return domain.SignalSnapshot{}, err
	}
	defer capturer.Close()

	return capturer.Capture(ctx, url)
}

// runSpinner shows an indeterminate spinner while fn runs
func runSpinner[T any](description string, fn func() T) T {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
	)

	done := make(chan bool)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				bar.Add(1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()

	result := fn()
	close(done)
	bar.Finish()
	fmt.Println()

	return result
}

func printSummary(audit *domain.Audit, duration time.Duration) {
	fmt.Println()
	cyan.Println("┌─────────────────────────────────────────┐")
	cyan.Println("│             AUDIT SUMMARY               │")
	cyan.Println("├─────────────────────────────────────────┤")
	printScoreRow("Overall", audit.Review.Score)
	printScoreRow("Health", audit.HealthScore)
	printScoreRow("UX", audit.Review.UX.Score)
	printScoreRow("Accessibility", audit.Review.Accessibility.Score)
	printScoreRow("SEO", audit.Review.SEO.Score)
	printScoreRow("Visual", audit.Review.Visual.Score)
	cyan.Println("└─────────────────────────────────────────┘")

	if len(audit.Review.Issues) > 0 {
		fmt.Println()
		bold.Println("Top issues:")
		for i, issue := range audit.Review.Issues {
			if i >= 5 {
				dim.Printf("  ... and %d more\n", len(audit.Review.Issues)-i)
				break
			}
			sevColor := severityColor(issue.Severity)
			sevColor.Printf("  [%s]", issue.Severity)
			fmt.Printf(" %s ", issue.Title)
			dim.Printf("(%s, priority %s)\n", issue.Category, issue.PriorityLabel)
		}
	}

	if len(audit.Review.TopImprovements) > 0 {
		fmt.Println()
		bold.Println("Suggested copy improvements:")
		for _, imp := range audit.Review.TopImprovements {
			fmt.Printf("  - %s\n", truncate(imp.Before, 60))
			green.Printf("    → %s\n", truncate(imp.After, 60))
		}
	}

	fmt.Println()
	fmt.Printf("Completed in %.1fs\n", duration.Seconds())
}

func printScoreRow(label string, score int) {
	scoreColor := green
	switch {
	case score < 40:
		scoreColor = red
	case score < 70:
		scoreColor = yellow
	}

	fmt.Printf("│ %-24s", label)
	scoreColor.Printf("%8d", score)
	fmt.Println("         │")
}

func severityColor(s domain.Severity) *color.Color {
	switch s {
	case domain.SeverityHigh:
		return red
	case domain.SeverityMedium:
		return yellow
	default:
		return dim
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
