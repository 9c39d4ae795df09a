package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sitepulse/sitepulse/internal/alerting"
	"github.com/sitepulse/sitepulse/internal/api"
	"github.com/sitepulse/sitepulse/internal/capture"
	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/llm"
	"github.com/sitepulse/sitepulse/internal/observability"
	"github.com/sitepulse/sitepulse/internal/perf"
	"github.com/sitepulse/sitepulse/internal/repository/postgres"
	rediscache "github.com/sitepulse/sitepulse/internal/repository/redis"
	"github.com/sitepulse/sitepulse/internal/review"
	"github.com/sitepulse/sitepulse/internal/storage"
)

func main() {
	// Load .env if present, real environment wins
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(string(cfg.Env), cfg.GetLogLevel())
	defer logger.Sync()

	logger.Info("Starting SitePulse API",
		zap.String("version", cfg.App.Version),
		zap.String("environment", string(cfg.Env)),
	)

	// Connect to PostgreSQL
	db, err := postgres.New(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
	)

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis (optional)
	var cache *rediscache.Cache
	cache, err = rediscache.New(cfg.Redis)
	if err != nil {
		logger.Warn("Failed to connect to Redis, caching disabled", zap.Error(err))
		cache = nil
	} else {
		defer cache.Close()
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	// Connect to object storage (optional, screenshots only)
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

	// Claude client
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

	// Browser capturer
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

	perfCollector := perf.NewCollector(cfg.PageSpeed.APIKey, logger)
	notifier := alerting.NewNotifier(cfg.Alerting, logger)

	repo := postgres.NewAuditRepository(db.DB)
	serviceOpts := review.Options{
		Notifier:     notifier,
		Metrics:      metrics,
		RetainPerURL: cfg.Scheduler.RetainPerURL,
	}
	// A nil *Cache inside the interface would not compare equal to nil.
	if cache != nil {
		serviceOpts.Cache = cache
	}
	service := review.NewService(repo, capturer, perfCollector, model, logger, serviceOpts)

	router := api.NewRouter(api.RouterConfig{
		Service:     service,
		DB:          db,
		Audits:      repo,
		Cache:       cache,
		Metrics:     metrics,
		Security:    cfg.Security,
		Logger:      logger,
		RateLimit:   rateLimit(cfg),
		Development: cfg.IsDevelopment(),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", zap.String("addr", addr))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("Server error", zap.Error(err))

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed, forcing close", zap.Error(err))
			server.Close()
		}

		logger.Info("Server stopped gracefully")
	}
}

func rateLimit(cfg *config.Config) int {
	if !cfg.RateLimits.Enabled {
		return 0
	}
	return cfg.RateLimits.RequestsPerMin
}

// initLogger creates a configured zap logger
func initLogger(env, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
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
