package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pricingapp "github.com/erp/pricing/internal/application/pricing"
	webhookapp "github.com/erp/pricing/internal/application/webhook"
	"github.com/erp/pricing/internal/infrastructure/analytics"
	"github.com/erp/pricing/internal/infrastructure/cache"
	"github.com/erp/pricing/internal/infrastructure/config"
	"github.com/erp/pricing/internal/infrastructure/event"
	"github.com/erp/pricing/internal/infrastructure/logger"
	"github.com/erp/pricing/internal/infrastructure/persistence"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/erp/pricing/internal/infrastructure/webhook"
	"github.com/erp/pricing/internal/interfaces/http/handler"
	"github.com/erp/pricing/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("starting pricing engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("failed to migrate database schema", zap.Error(err))
	}
	log.Info("database connected")

	// Repositories
	ruleRepo := persistence.NewGormRuleRepository(db.DB)
	logRepo := persistence.NewGormComputationLogRepository(db.DB)
	subRepo := persistence.NewGormSubscriptionRepository(db.DB)
	deliveryRepo := persistence.NewGormDeliveryRepository(db.DB)

	// Event bus
	bus := event.NewInMemoryEventBus(log)

	// Price cache: in-process L1 always, shared Redis L2 when configured
	cacheCfg := cache.Config{
		L1TTL:  cfg.Cache.L1TTL,
		L2TTL:  cfg.Cache.L2TTL,
		Shards: cfg.Cache.Shards,
	}
	l1 := cache.NewInMemoryPriceCache(
		cache.WithInMemoryConfig(cacheCfg),
		cache.WithInMemoryLogger(log),
	)
	var l2 *cache.RedisPriceCache
	if cfg.Redis.Enabled {
		l2, err = cache.NewRedisPriceCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
			cache.WithRedisCacheConfig(cacheCfg),
			cache.WithRedisCacheLogger(log),
		)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		log.Info("shared price cache enabled",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port))
	}
	priceCache := cache.NewTieredPriceCache(l1, l2, log)
	defer priceCache.Stop()

	// Rule changes invalidate cached prices and fan out to webhooks
	bus.Subscribe(cache.NewRuleChangeInvalidator(priceCache, log))
	bus.Subscribe(webhook.NewEnqueuer(subRepo, deliveryRepo, log))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}

	// Async analytics recorder
	var recorder *analytics.Recorder
	var analyticsSink pricingapp.AnalyticsRecorder
	if cfg.Analytics.Enabled {
		recorder = analytics.NewRecorder(logRepo,
			analytics.WithRecorderConfig(analytics.Config{
				BufferSize:    cfg.Analytics.BufferSize,
				BatchSize:     cfg.Analytics.BatchSize,
				FlushInterval: cfg.Analytics.FlushInterval,
			}),
			analytics.WithRecorderLogger(log),
		)
		recorder.Start()
		analyticsSink = recorder
	}

	// Webhook delivery dispatcher. The sender is also used for test
	// deliveries from the API, so it exists even when the dispatcher is off.
	sender := webhook.NewHTTPSender(&http.Client{Timeout: cfg.Webhook.SendTimeout})
	var dispatcher *webhook.Dispatcher
	if cfg.Webhook.DispatcherEnabled {
		dispatcher = webhook.NewDispatcher(deliveryRepo, subRepo, sender, webhook.DispatcherConfig{
			BatchSize:        cfg.Webhook.BatchSize,
			PollInterval:     cfg.Webhook.PollInterval,
			CleanupEnabled:   cfg.Webhook.CleanupEnabled,
			CleanupRetention: cfg.Webhook.CleanupRetention,
			CleanupInterval:  cfg.Webhook.CleanupInterval,
		}, log)
		if err := dispatcher.Start(ctx); err != nil {
			log.Fatal("failed to start webhook dispatcher", zap.Error(err))
		}
	}

	// Application services
	priceService := pricingapp.NewPriceService(ruleRepo, priceCache, analyticsSink, log)
	ruleService := pricingapp.NewRuleService(ruleRepo, bus, log)
	analyticsService := pricingapp.NewAnalyticsService(logRepo, log)
	subscriptionService := webhookapp.NewSubscriptionService(subRepo, deliveryRepo, sender, log)

	// HTTP server
	engine := router.New(cfg, log, router.Handlers{
		System:    handler.NewSystemHandler(db, version),
		Price:     handler.NewPriceHandler(priceService),
		Rule:      handler.NewRuleHandler(ruleService),
		Analytics: handler.NewAnalyticsHandler(analyticsService),
		Webhook:   handler.NewWebhookHandler(subscriptionService),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if dispatcher != nil {
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			log.Error("webhook dispatcher did not stop cleanly", zap.Error(err))
		}
	}
	if recorder != nil {
		recorder.Stop()
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("event bus did not stop cleanly", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("tracer provider did not stop cleanly", zap.Error(err))
	}

	log.Info("server exited gracefully")
}
