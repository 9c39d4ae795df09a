package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sitepulse/sitepulse/internal/alerting"
	"github.com/sitepulse/sitepulse/internal/capture"
	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/llm"
	"github.com/sitepulse/sitepulse/internal/observability"
	"github.com/sitepulse/sitepulse/internal/perf"
	"github.com/sitepulse/sitepulse/internal/repository/postgres"
	rediscache "github.com/sitepulse/sitepulse/internal/repository/redis"
	"github.com/sitepulse/sitepulse/internal/review"
	"github.com/sitepulse/sitepulse/internal/scheduler"
	"github.com/sitepulse/sitepulse/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(string(cfg.Env), cfg.GetLogLevel())
	defer logger.Sync()

	logger.Info("Starting SitePulse Worker",
		zap.String("version", cfg.App.Version),
		zap.String("environment", string(cfg.Env)),
		zap.String("cron", cfg.Scheduler.CronSpec),
		zap.Int("max_concurrent", cfg.Scheduler.MaxConcurrent),
	)

	if !cfg.Scheduler.Enabled {
		logger.Info("Scheduler disabled, exiting")
		return
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	var cache *rediscache.Cache
	cache, err = rediscache.New(cfg.Redis)
	if err != nil {
		logger.Warn("Failed to connect to Redis, caching disabled", zap.Error(err))
		cache = nil
	} else {
		defer cache.Close()
	}

	var store capture.StorageClient
	minioClient, err := storage.NewMinIOClient(storage.MinIOConfig{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKey,
		SecretAccessKey: cfg.Storage.SecretKey,
		UseSSL:          cfg.Storage.UseSSL,
		BucketName:      cfg.Storage.Bucket,
	})
	if err != nil {
		logger.Warn("Failed to connect to object storage, screenshots disabled", zap.Error(err))
	} else {
		if err := minioClient.EnsureBucket(ctx); err != nil {
			logger.Warn("Failed to ensure screenshot bucket", zap.Error(err))
		}
		store = minioClient
	}

	metrics := observability.InitMetrics("sitepulse")

	model, err := llm.NewClient(llm.Config{
		APIKey:       cfg.Claude.APIKey,
		Model:        cfg.Claude.Model,
		Timeout:      cfg.Claude.Timeout,
		RateLimitRPM: cfg.Claude.RateLimitRPM,
		CacheTTL:     cfg.Claude.CacheTTL,
		MaxRetries:   cfg.Claude.MaxRetries,
	})
	if err != nil {
		logger.Fatal("Failed to create Claude client", zap.Error(err))
	}

	capturer, err := capture.NewCapturer(capture.Config{
		Headless:       cfg.Capture.Headless,
		ViewportWidth:  cfg.Capture.ViewportWidth,
		ViewportHeight: cfg.Capture.ViewportHeight,
		NavTimeout:     cfg.Capture.NavTimeout,
	}, store, logger)
	if err != nil {
		logger.Fatal("Failed to launch browser", zap.Error(err))
	}
	defer capturer.Close()

	repo := postgres.NewAuditRepository(db.DB)
	serviceOpts := review.Options{
		Notifier:     alerting.NewNotifier(cfg.Alerting, logger),
		Metrics:      metrics,
		RetainPerURL: cfg.Scheduler.RetainPerURL,
	}
	// A nil *Cache inside the interface would not compare equal to nil.
	if cache != nil {
		serviceOpts.Cache = cache
	}
	service := review.NewService(
		repo,
		capturer,
		perf.NewCollector(cfg.PageSpeed.APIKey, logger),
		model,
		logger,
		serviceOpts,
	)

	sched := scheduler.New(service, repo, cfg.Scheduler, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown

	logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	sched.Stop()
	logger.Info("Worker stopped gracefully")
}

// initLogger creates a configured zap logger
func initLogger(env, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if env == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
