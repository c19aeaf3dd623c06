package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chanlytics/channel-analysis-go/internal/analysis"
	"github.com/chanlytics/channel-analysis-go/internal/cache"
	"github.com/chanlytics/channel-analysis-go/internal/config"
	"github.com/chanlytics/channel-analysis-go/internal/db"
	"github.com/chanlytics/channel-analysis-go/internal/db/repository"
	"github.com/chanlytics/channel-analysis-go/internal/events"
	"github.com/chanlytics/channel-analysis-go/internal/handler"
	"github.com/chanlytics/channel-analysis-go/internal/queue"
	"github.com/chanlytics/channel-analysis-go/internal/service/gemini"
	"github.com/chanlytics/channel-analysis-go/internal/service/youtube"
	"github.com/chanlytics/channel-analysis-go/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.YouTube.APIKey == "" {
		logger.Log.Fatal("YouTube API key is required (APP_YOUTUBE_APIKEY)")
	}
	if cfg.Gemini.APIKey == "" {
		logger.Log.Fatal("Gemini API key is required (APP_GEMINI_APIKEY)")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, &db.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConnections),
		MinConns:        int32(cfg.Database.MinConnections),
		MaxConnLifetime: cfg.Database.MaxLifetime,
		MaxConnIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close(pool)

	logger.Log.Info("Database connection established")

	channelRepo := repository.NewChannelRepository(pool)
	videoRepo := repository.NewVideoRepository(pool)
	analysisRepo := repository.NewAnalysisRepository(pool)
	quotaRepo := repository.NewQuotaRepository(pool)

	// Cache tier: Redis when configured, in-process otherwise.
	var store cache.Store
	if cfg.Redis.URL != "" {
		redisStore, err := cache.NewRedisStore(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Log.Warn("Redis unavailable, falling back to in-process cache", zap.Error(err))
			store = cache.NewMemoryStore()
		} else {
			defer func() { _ = redisStore.Close() }()
			store = redisStore
			logger.Log.Info("Redis cache initialized")
		}
	} else {
		store = cache.NewMemoryStore()
		logger.Log.Info("Using in-process cache (no Redis URL configured)")
	}

	appCache := cache.New(store, cache.TTLs{
		ChannelMeta:     cfg.Analysis.CacheTTLChannelMeta,
		ChannelAnalysis: cfg.Analysis.CacheTTLAnalysis,
		VideoList:       cfg.Analysis.CacheTTLVideoList,
		URLMapping:      cfg.Analysis.CacheTTLURLMapping,
	})

	ledger := analysis.NewLedger(cfg.YouTube.DailyQuota, cfg.YouTube.QuotaWindow, logger.Named("quota"))
	ledger.SetAuditSink(quotaRepo)

	youtubeClient, err := youtube.NewClient(cfg.YouTube.APIKey, cfg.YouTube.RequestTimeout)
	if err != nil {
		logger.Log.Fatal("Failed to initialize YouTube client", zap.Error(err))
	}

	geminiClient, err := gemini.NewClient(gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		Model:           cfg.Gemini.Model,
		Timeout:         cfg.Gemini.RequestTimeout,
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
	})
	if err != nil {
		logger.Log.Fatal("Failed to initialize Gemini client", zap.Error(err))
	}

	fetcher := analysis.NewFetcher(youtubeClient, ledger, cfg.YouTube.MaxVideoPages, logger.Named("fetcher"))
	generator := analysis.NewGenerator(geminiClient, cfg.Analysis.MinSummaryLength, cfg.Gemini.MaxAttempts, logger.Named("generator"))

	coordinator := analysis.NewCoordinator(fetcher, generator, analysis.CoordinatorConfig{
		MaxSample:       cfg.Analysis.MaxSampleSize,
		StalenessWindow: cfg.Analysis.StalenessWindow,
		DegradedMode:    cfg.Analysis.DegradedMode,
		MaxConcurrent:   cfg.Analysis.MaxConcurrent,
	}, logger.Named("coordinator"))

	engineCfg := analysis.EngineConfig{
		Cache:             appCache,
		Channels:          channelRepo,
		Videos:            videoRepo,
		Analyses:          analysisRepo,
		Coordinator:       coordinator,
		Fetcher:           fetcher,
		BackgroundTimeout: cfg.Analysis.BackgroundTaskTimeout,
	}

	// Deferred refreshes go through asynq when Redis is configured.
	if cfg.Redis.URL != "" {
		queueClient, err := queue.NewClient(cfg.Redis.URL)
		if err != nil {
			logger.Log.Warn("Queue client unavailable, stale refreshes will run in-process", zap.Error(err))
		} else {
			defer func() { _ = queueClient.Close() }()
			engineCfg.Enqueuer = queueClient
			logger.Log.Info("Queue client initialized, stale refreshes will be enqueued")
		}
	}

	// Optional analysis event publishing.
	var publisher *events.MessagePublisher
	if cfg.RabbitMQ.Enabled {
		publisher, err = events.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Warn("RabbitMQ unavailable, analysis events will not be published", zap.Error(err))
		} else {
			defer func() { _ = publisher.Close() }()
			engineCfg.Publisher = publisher
		}
	}

	engine := analysis.NewEngine(engineCfg, logger.Named("engine"))

	analysisHandler := handler.NewAnalysisHandler(engine)
	var brokerHealth handler.BrokerHealth
	if publisher != nil {
		brokerHealth = publisher
	}
	healthHandler := handler.NewHealthHandler(pool, brokerHealth)

	router := handler.NewRouter(analysisHandler, healthHandler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Log.Fatal("Server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Log.Error("Graceful shutdown failed", zap.Error(err))
			_ = server.Close()
			os.Exit(1)
		}

		logger.Log.Info("Server stopped gracefully")
	}
}
