package review

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/alerting"
	"github.com/sitepulse/sitepulse/internal/analysis"
	"github.com/sitepulse/sitepulse/internal/domain"
	"github.com/sitepulse/sitepulse/internal/llm"
	"github.com/sitepulse/sitepulse/internal/observability"
	"github.com/sitepulse/sitepulse/internal/resilience"
)

// Audit triggers, used for metrics and event routing.
const (
	TriggerAPI       = "api"
	TriggerScheduled = "scheduled"
	TriggerCLI       = "cli"
)

// Capturer produces a signal snapshot for a URL.
type Capturer interface {
	Capture(ctx context.Context, url string) (domain.SignalSnapshot, error)
}

// PerfCollector fetches a performance report. Implementations degrade to a
// uniform-50 report instead of failing.
type PerfCollector interface {
	Collect(ctx context.Context, url string) *domain.PerformanceReport
}

// ModelCaller sends the prompt pair to the model.
type ModelCaller interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, *llm.Usage, error)
}

// Notifier delivers alert events.
type Notifier interface {
	NotifyScoreDrop(ctx context.Context, event alerting.ScoreDropEvent) error
	NotifyAuditComplete(ctx context.Context, event alerting.AuditCompleteEvent) error
}

// AuditCache caches finished audits and invalidates stale diffs.
type AuditCache interface {
	SetAudit(ctx context.Context, audit *domain.Audit) error
	InvalidateDiff(ctx context.Context, url string) error
}

// Service runs the full audit pipeline: capture, analyze, model review,
// sanitize or fall back, enrich, compose health, persist, alert.
type Service struct {
	repo     domain.AuditRepository
	capturer Capturer
	perf     PerfCollector
	model    ModelCaller
	breaker  *resilience.Breaker
	notifier Notifier
	cache    AuditCache
	metrics  *observability.Metrics
	logger   *zap.Logger

	retainPerURL int
}

// Options carries the optional service collaborators.
type Options struct {
	Notifier     Notifier
	Cache        AuditCache
	Metrics      *observability.Metrics
	RetainPerURL int
}

// NewService wires the audit pipeline.
func NewService(
	repo domain.AuditRepository,
	capturer Capturer,
	perf PerfCollector,
	model ModelCaller,
	logger *zap.Logger,
	opts Options,
) *Service {
	return &Service{
		repo:     repo,
		capturer: capturer,
		perf:     perf,
		model:    model,
		breaker: resilience.New(resilience.Config{
			Name: "claude",
			// Quota is provider policy, not instability; the fallback
			// generator handles it without opening the circuit.
			CountsAsFailure: func(err error) bool {
				return err != nil && !llm.IsQuota(err)
			},
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Warn("model breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		notifier:     opts.Notifier,
		cache:        opts.Cache,
		metrics:      opts.Metrics,
		logger:       logger,
		retainPerURL: opts.RetainPerURL,
	}
}

// AuditURL runs one complete audit and persists the result.
func (s *Service) AuditURL(ctx context.Context, url, trigger string) (*domain.Audit, error) {
	start := time.Now()

	audit, err := s.runAudit(ctx, url, trigger)

	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordAudit(trigger, status, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("audit completed",
		zap.String("url", url),
		zap.String("trigger", trigger),
		zap.Int("score", audit.Review.Score),
		zap.Int("health_score", audit.HealthScore),
		zap.Bool("fallback", audit.Fallback),
		zap.Duration("duration", time.Since(start)))

	return audit, nil
}

func (s *Service) runAudit(ctx context.Context, url, trigger string) (*domain.Audit, error) {
	snap, err := s.capturer.Capture(ctx, url)
	if err != nil {
		return nil, err
	}

	perf := s.perf.Collect(ctx, snap.URL)

	audit, err := s.Review(ctx, snap, perf)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, audit); err != nil {
		return nil, err
	}

	if s.retainPerURL > 0 {
		if trimmed, err := s.repo.TrimToLast(ctx, url, s.retainPerURL); err != nil {
			s.logger.Warn("audit retention trim failed", zap.String("url", url), zap.Error(err))
		} else if trimmed > 0 {
			s.logger.Debug("trimmed old audits", zap.String("url", url), zap.Int("removed", trimmed))
		}
	}

	if s.cache != nil {
		if err := s.cache.SetAudit(ctx, audit); err != nil {
			s.logger.Warn("audit cache write failed", zap.Error(err))
		}
		if err := s.cache.InvalidateDiff(ctx, url); err != nil {
			s.logger.Warn("diff cache invalidation failed", zap.Error(err))
		}
	}

	s.emitEvents(ctx, audit, trigger)

	return audit, nil
}

// Review runs the snapshot through analyzers and the model and assembles
// the audit record without persisting it. Exposed for the CLI, which audits
// ad hoc URLs without a database.
func (s *Service) Review(ctx context.Context, snap domain.SignalSnapshot, perf *domain.PerformanceReport) (*domain.Audit, error) {
	content := analysis.AnalyzeContent(analysis.ContentInput{
		Title:           snap.Text.Title,
		Headings:        snap.Text.Headings,
		MainText:        snap.Text.MainText,
		MetaDescription: snap.Text.MetaDescription,
		H1:              snap.Text.H1,
		Subheadings:     snap.Text.Subheadings,
	})
	motion := analysis.AnalyzeMotion(snap.Motion)
	motion = analysis.CorrelateMotion(motion, snap.Motion, perf)
	ux := analysis.AnalyzeUX(snap, content.Readability, motion.RiskScore)

	systemPrompt, userPrompt := BuildPrompts(PromptInput{
		Snapshot:    snap,
		Content:     content,
		Motion:      motion,
		UX:          ux,
		Performance: perf,
	})

	r, fallback, err := s.modelReview(ctx, snap, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	r = EnrichReview(r)

	health := HealthScore(r.UX.Score, perf.Performance, r.Accessibility.Score, r.SEO.Score)

	if s.metrics != nil {
		s.metrics.RecordScores(r.Score, health)
	}

	return domain.NewAudit(snap.URL, r, perf, health, fallback), nil
}

// modelReview calls the model through the breaker. Quota exhaustion and an
// open breaker both produce the deterministic fallback review; every other
// failure is fatal for this audit.
func (s *Service) modelReview(ctx context.Context, snap domain.SignalSnapshot, systemPrompt, userPrompt string) (domain.Review, bool, error) {
	text, err := s.breaker.Do(ctx, func(ctx context.Context) (string, error) {
		text, _, err := s.model.Complete(ctx, systemPrompt, userPrompt)
		return text, err
	})
	if err != nil {
		if llm.IsQuota(err) || errors.Is(err, resilience.ErrOpen) {
			s.logger.Warn("model unavailable, generating fallback review",
				zap.String("url", snap.URL),
				zap.Error(err))
			if s.metrics != nil {
				s.metrics.FallbackReviews.Inc()
			}
			return FallbackReview(snap), true, nil
		}
		return domain.Review{}, false, domain.ErrModelFailed(err)
	}

	r, err := ParseReview(text)
	if err != nil {
		return domain.Review{}, false, err
	}
	return r, false, nil
}

func (s *Service) emitEvents(ctx context.Context, audit *domain.Audit, trigger string) {
	if s.notifier == nil {
		return
	}

	if trigger == TriggerScheduled {
		event := alerting.AuditCompleteEvent{
			URL:         audit.URL,
			AuditID:     audit.ID.String(),
			Score:       audit.Review.Score,
			HealthScore: audit.HealthScore,
			Fallback:    audit.Fallback,
		}
		if err := s.notifier.NotifyAuditComplete(ctx, event); err != nil {
			s.logger.Warn("audit-complete notification failed", zap.Error(err))
		}
	}

	_, previous, err := s.repo.GetLastTwoByURL(ctx, audit.URL)
	if err != nil || previous == nil {
		return
	}

	event := alerting.ScoreDropEvent{
		URL:      audit.URL,
		OldScore: previous.Review.Score,
		NewScore: audit.Review.Score,
	}
	if previous.Performance != nil && audit.Performance != nil {
		oldHealth, newHealth := previous.HealthScore, audit.HealthScore
		event.OldHealthScore = &oldHealth
		event.NewHealthScore = &newHealth
	}

	if !alerting.ShouldAlert(event) {
		return
	}

	if s.metrics != nil {
		s.metrics.ScoreDropAlerts.Inc()
	}
	if err := s.notifier.NotifyScoreDrop(ctx, event); err != nil {
		s.logger.Error("score-drop alert failed", zap.String("url", audit.URL), zap.Error(err))
	}
}
