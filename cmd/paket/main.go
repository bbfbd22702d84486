package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/apohrebniak/paket/internal/article"
	"github.com/apohrebniak/paket/internal/common/config"
	"github.com/apohrebniak/paket/internal/common/logger"
	"github.com/apohrebniak/paket/internal/common/metricsserver"
	"github.com/apohrebniak/paket/internal/common/redis"
	"github.com/apohrebniak/paket/internal/fetch"
	"github.com/apohrebniak/paket/internal/metrics"
	"github.com/apohrebniak/paket/internal/server"
	"github.com/apohrebniak/paket/internal/store"
)

func main() {
	configPath := flag.String("c", "configs/paket.yaml", "path to configuration file")
	flag.Parse()

	// Create initial logger for startup
	initialLogger, err := logger.NewDefaultLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	initialLogger.Info("Starting Paket", zap.String("config_path", *configPath))

	cfg, err := config.Load(*configPath)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Reconfigure logger based on config settings
	appLogger, err := logger.NewLogger(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	defer appLogger.Sync()

	// Load the system trust store once, before the first HTTPS fetch
	if err := fetch.InitTLSTrust(); err != nil {
		appLogger.Fatal("Failed to load TLS trust store", zap.Error(err))
	}

	// Connect to MySQL and make sure the schema exists
	st, err := store.New(cfg.Storage, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer st.Close()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := st.Initialize(initCtx); err != nil {
		cancelInit()
		appLogger.Fatal("Failed to initialize database schema", zap.Error(err))
	}
	cancelInit()

	// Metrics are optional
	var metricsCollector *metrics.MetricsCollector
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.NewMetricsCollector(cfg.Metrics.Namespace, appLogger)
	}

	metricsServer, err := metricsserver.StartMetricsServer(
		cfg.Metrics.Enabled,
		cfg.Metrics.Listen,
		cfg.Metrics.Path,
		metricsCollector,
		appLogger,
	)
	if err != nil {
		appLogger.Fatal("Failed to start metrics server", zap.Error(err))
	}

	// The Redis title cache is optional; without it every save fetches again
	var titleCache *article.TitleCache
	var redisClient *redis.Client
	if cfg.Redis != nil {
		redisClient, err = redis.NewClient(cfg.Redis, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		titleCache = article.NewTitleCache(
			redisClient,
			cfg.Redis.TitleTTL.ToDuration(),
			metricsCollector,
			appLogger,
		)
	}

	fetcher := fetch.NewClient(fetch.Config{
		BlockPrivateHosts: cfg.Fetch.SSRFProtection == nil || *cfg.Fetch.SSRFProtection,
	}, appLogger)

	articleService := article.NewService(article.Config{
		FetchTimeout:    cfg.Fetch.Timeout.ToDuration(),
		FeedName:        cfg.Feed.Name,
		FeedDescription: cfg.Feed.Description,
		FeedLink:        cfg.Feed.Link,
		FeedTTL:         cfg.Feed.TTL.ToDuration(),
		RateLimit:       cfg.Fetch.RateLimit,
		RateBurst:       cfg.Fetch.RateBurst,
	}, st, fetcher, titleCache, metricsCollector, appLogger)

	var redisHealth server.HealthChecker
	if redisClient != nil {
		redisHealth = redisClient
	}

	srv := server.NewServer(
		articleService,
		st,
		st,
		redisHealth,
		metricsCollector,
		cfg.Server.Timeout.ToDuration(),
		appLogger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.Server.Listen); err != nil {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Check for immediate startup failures
	time.Sleep(100 * time.Millisecond)
	select {
	case err := <-serverErrors:
		appLogger.Fatal("Server failed to start", zap.Error(err))
	default:
	}

	appLogger.Info("Paket started", zap.String("listen", cfg.Server.Listen))

	// Wait for shutdown signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down Paket...")
	case err := <-serverErrors:
		appLogger.Error("Server stopped, initiating shutdown", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		appLogger.Info("Shutting down metrics server")
		if err := metricsServer.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}

	appLogger.Info("Paket stopped")
}
