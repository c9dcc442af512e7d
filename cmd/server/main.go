package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apptracking "github.com/ordertrack/backend/internal/application/tracking"
	"github.com/ordertrack/backend/internal/domain/tracking"
	"github.com/ordertrack/backend/internal/infrastructure/cache"
	"github.com/ordertrack/backend/internal/infrastructure/commerce"
	"github.com/ordertrack/backend/internal/infrastructure/config"
	"github.com/ordertrack/backend/internal/infrastructure/logger"
	"github.com/ordertrack/backend/internal/infrastructure/notify"
	"github.com/ordertrack/backend/internal/infrastructure/persistence"
	"github.com/ordertrack/backend/internal/infrastructure/scheduler"
	"github.com/ordertrack/backend/internal/interfaces/http/handler"
	"github.com/ordertrack/backend/internal/interfaces/http/middleware"
	"github.com/ordertrack/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting order tracking relay",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	markers := cfg.Markers.StatusMarkers()

	// Outbound adapters
	platformClient, err := commerce.NewPlatformClient(&commerce.PlatformClientConfig{
		BaseURL:            cfg.Platform.BaseURL,
		AccessToken:        cfg.Platform.AccessToken,
		StatusFieldKey:     cfg.Platform.StatusFieldKey,
		BranchFieldKey:     cfg.Platform.BranchFieldKey,
		NestedOrderPayload: cfg.Platform.NestedOrderPayload,
		TimeoutSeconds:     int(cfg.Platform.Timeout.Seconds()),
	})
	if err != nil {
		log.Fatal("Failed to create platform client", zap.Error(err))
	}

	carrierClient, err := commerce.NewCarrierClient(&commerce.CarrierClientConfig{
		TimeoutSeconds: int(cfg.Carrier.Timeout.Seconds()),
		MaxPageSize:    cfg.Carrier.MaxPageSize,
	})
	if err != nil {
		log.Fatal("Failed to create carrier client", zap.Error(err))
	}

	chatNotifier, err := notify.NewChatNotifier(&notify.ChatNotifierConfig{
		BaseURL:        cfg.Chat.BaseURL,
		BotToken:       cfg.Chat.BotToken,
		ChatID:         cfg.Chat.ChatID,
		TimeoutSeconds: int(cfg.Chat.Timeout.Seconds()),
	})
	if err != nil {
		log.Fatal("Failed to create chat notifier", zap.Error(err))
	}

	tokenSource, err := notify.NewOAuthTokenSource(&notify.OAuthTokenSourceConfig{
		BaseURL:        cfg.Messaging.BaseURL,
		ClientID:       cfg.Messaging.ClientID,
		ClientSecret:   cfg.Messaging.ClientSecret,
		TimeoutSeconds: int(cfg.Messaging.Timeout.Seconds()),
	})
	if err != nil {
		log.Fatal("Failed to create messaging token source", zap.Error(err))
	}

	messenger, err := notify.NewTemplateMessenger(&notify.TemplateMessengerConfig{
		BaseURL:            cfg.Messaging.BaseURL,
		PickupTemplate:     cfg.Messaging.PickupTemplate,
		DeliveryTemplate:   cfg.Messaging.DeliveryTemplate,
		DefaultPhonePrefix: cfg.Messaging.DefaultPhonePrefix,
		TimeoutSeconds:     int(cfg.Messaging.Timeout.Seconds()),
	}, tokenSource, log)
	if err != nil {
		log.Fatal("Failed to create template messenger", zap.Error(err))
	}

	// Application services
	ingestService := apptracking.NewIngestService(orderRepo, markers, log)
	reconciler := apptracking.NewReconciler(
		orderRepo,
		platformClient,
		carrierClient,
		chatNotifier,
		messenger,
		markers,
		apptracking.ReconcilerConfig{DefaultBranchLabel: cfg.Platform.DefaultBranchLabel},
		log,
	)

	// Cycle lock: Redis when reachable, in-memory otherwise. The in-memory
	// lock is only safe for single-instance deployments.
	var cycleLock tracking.CycleLock
	redisLock, err := cache.NewRedisCycleLock(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory cycle lock", zap.Error(err))
		cycleLock = cache.NewInMemoryCycleLock()
	} else {
		defer func() {
			if err := redisLock.Close(); err != nil {
				log.Error("Error closing Redis connection", zap.Error(err))
			}
		}()
		cycleLock = redisLock
		log.Info("Redis cycle lock initialized",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	}

	// Start the reconciliation trigger
	if cfg.Reconcile.Enabled {
		trigger, err := scheduler.NewReconcileTrigger(scheduler.ReconcileTriggerConfig{
			Interval:     cfg.Reconcile.Interval,
			CycleTimeout: cfg.Reconcile.CycleTimeout,
			LockTTL:      cfg.Reconcile.LockTTL,
		}, reconciler, cycleLock, tokenSource, log)
		if err != nil {
			log.Fatal("Failed to create reconcile trigger", zap.Error(err))
		}
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reconcile trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping reconcile trigger", zap.Error(err))
			}
		}()
	} else {
		log.Warn("Reconciliation disabled, orders will not be polled")
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register JSON tag names for validation error fields
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, in order: request ID, panic recovery, access log,
	// security headers, CORS, body size limit
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// HTTP handlers
	webhookHandler := handler.NewWebhookHandler(ingestService, cfg.Webhook.Secret, log)
	ordersHandler := handler.NewOrdersHandler(orderRepo)
	systemHandler := handler.NewSystemHandler(db)

	// Health endpoints live outside API versioning
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(webhookHandler).
		Register(ordersHandler).
		Register(systemHandler)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
