package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zuorasync/backend/internal/application/billingsync"
	"github.com/zuorasync/backend/internal/domain/integration"
	"github.com/zuorasync/backend/internal/domain/shared"
	"github.com/zuorasync/backend/internal/infrastructure/billing"
	"github.com/zuorasync/backend/internal/infrastructure/cache"
	"github.com/zuorasync/backend/internal/infrastructure/commerce"
	"github.com/zuorasync/backend/internal/infrastructure/config"
	"github.com/zuorasync/backend/internal/infrastructure/logger"
	"github.com/zuorasync/backend/internal/infrastructure/telemetry"
	"github.com/zuorasync/backend/internal/interfaces/http/handler"
	"github.com/zuorasync/backend/internal/interfaces/http/middleware"
	"github.com/zuorasync/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := providers.BridgeLogger(baseLog, zapcore.InfoLevel)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting billing sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
	)

	metrics, err := telemetry.NewSyncMetrics(providers.Meter(telemetry.TracerName))
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	zuora, err := billing.NewZuoraClient(&billing.ZuoraConfig{
		BaseURL:        cfg.Billing.BaseURL,
		ClientID:       cfg.Billing.ClientID,
		ClientSecret:   cfg.Billing.ClientSecret,
		TimeoutSeconds: cfg.Billing.TimeoutSeconds,
	}, log.Named("zuora"), billing.WithMetrics(metrics))
	if err != nil {
		log.Fatal("Failed to create billing client", zap.Error(err))
	}

	ct, err := commerce.NewCommercetoolsAdapter(&commerce.CommercetoolsConfig{
		ProjectKey:     cfg.Commerce.ProjectKey,
		ClientID:       cfg.Commerce.ClientID,
		ClientSecret:   cfg.Commerce.ClientSecret,
		Scopes:         cfg.Commerce.Scopes,
		APIURL:         cfg.Commerce.APIURL,
		AuthURL:        cfg.Commerce.AuthURL,
		TimeoutSeconds: cfg.Commerce.TimeoutSeconds,
	}, log.Named("commercetools"))
	if err != nil {
		log.Fatal("Failed to create commerce adapter", zap.Error(err))
	}

	var (
		store  shared.IdempotencyStore
		checks = map[string]handler.HealthChecker{}
	)
	if cfg.Idempotency.Enabled {
		store, err = cache.NewIdempotencyStoreFactory(cache.RedisConfig{
			Host:      cfg.Redis.Host,
			Port:      cfg.Redis.Port,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, cache.WithLogger(log), cache.WithInMemoryFallback(cfg.Idempotency.AllowInMemoryFallback)).CreateStore(ctx)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
		if checker, ok := store.(handler.HealthChecker); ok {
			checks["idempotency_store"] = checker
		}
	}

	terms := integration.DefaultTermPolicy()
	terms.PeriodMonths = cfg.Sync.TermMonths
	serviceCfg := billingsync.ServiceConfig{Currency: cfg.Billing.Currency, Terms: terms}

	accounts := billingsync.NewAccountSyncService(zuora, serviceCfg, log.Named("accounts"))
	orders := billingsync.NewOrderSyncService(zuora, accounts, serviceCfg, log.Named("orders"))
	products := billingsync.NewProductSyncService(zuora, metrics, log.Named("products"))

	dispatcherOpts := []billingsync.DispatcherOption{billingsync.WithSyncMetrics(metrics)}
	if store != nil {
		dispatcherOpts = append(dispatcherOpts, billingsync.WithIdempotencyStore(store))
	}
	dispatcher := billingsync.NewNotificationDispatcher(ct, accounts, orders, products, billingsync.DispatcherConfig{
		ProjectKey:      cfg.Commerce.ProjectKey,
		OrderFetchDelay: cfg.Sync.OrderFetchDelay,
		Idempotency: shared.IdempotencyConfig{
			Enabled: cfg.Idempotency.Enabled,
			TTL:     cfg.Idempotency.TTL,
		},
	}, log.Named("dispatcher"), dispatcherOpts...)

	eventHandler := handler.NewEventHandler(dispatcher, log,
		handler.WithProcessingTimeout(cfg.Sync.ProcessingTimeout))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = providers.IsEnabled()

	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(tracingCfg),
		middleware.SpanEnricher(),
		middleware.HTTPMetrics(providers.Meter(telemetry.TracerName)),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.BodyLimit(cfg.Sync.MaxBodySize),
	)

	router.NewRouter(engine).
		Register(eventHandler).
		Register(handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, checks)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	start := time.Now()
	if err := eventHandler.Wait(shutdownCtx); err != nil {
		log.Warn("Drain deadline passed, cancelling in-flight notifications", zap.Error(err))
		unwindCtx, unwindCancel := context.WithTimeout(context.Background(), time.Second)
		if err := eventHandler.Wait(unwindCtx); err != nil {
			log.Warn("In-flight notifications abandoned", zap.Error(err))
		}
		unwindCancel()
	} else {
		log.Info("In-flight notifications drained", zap.Duration("waited", time.Since(start)))
	}
	if err := providers.Shutdown(context.Background()); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
