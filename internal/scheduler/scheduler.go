// Package scheduler re-audits every known URL on a cron cadence so diffs
// and score-drop alerts have fresh data without manual triggering.
package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/domain"
	"github.com/sitepulse/sitepulse/internal/review"
)

// Scheduler runs periodic audits over all tracked URLs.
type Scheduler struct {
	cron    *cron.Cron
	service *review.Service
	repo    domain.AuditRepository
	cfg     config.SchedulerConfig
	logger  *zap.Logger
}

// New creates a scheduler; Start registers and begins the cron job.
func New(service *review.Service, repo domain.AuditRepository, cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the audit sweep and starts ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.CronSpec, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("cron", s.cfg.CronSpec))
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}

// runSweep audits every known URL with bounded concurrency.
func (s *Scheduler) runSweep(ctx context.Context) {
	urls, err := s.repo.ListURLs(ctx)
	if err != nil {
		s.logger.Error("scheduled sweep: listing urls failed", zap.Error(err))
		return
	}
	if len(urls) == 0 {
		return
	}

	s.logger.Info("scheduled sweep starting", zap.Int("urls", len(urls)))

	concurrency := s.cfg.MaxConcurrent
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(url string) {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := s.service.AuditURL(ctx, url, review.TriggerScheduled); err != nil {
				s.logger.Error("scheduled audit failed", zap.String("url", url), zap.Error(err))
			}
		}(url)
	}
	wg.Wait()

	s.logger.Info("scheduled sweep finished", zap.Int("urls", len(urls)))
}
