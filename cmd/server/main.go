package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/database"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/health"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/kafka"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/logger"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/middleware"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/config"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/session"
	routingEvents "github.com/Kilat-Pet-Delivery/service-routing/internal/events"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/metrics"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/osrm"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/summarizer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceName = "service-routing"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-routing",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.Store),
		zap.Bool("kafka_enabled", cfg.KafkaConfig.Enabled),
	)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)

	// Initialize session repository
	var (
		sessionRepo session.Repository
		checks      = map[string]health.Pinger{}
	)
	switch cfg.Store {
	case config.StoreMemory:
		memRepo := repository.NewMemorySessionRepository()
		sessionRepo = memRepo
		log.Warn("using in-memory session store; sessions are lost on restart")
	default:
		db, err := database.Connect(cfg.DBConfig.DSN(), database.PoolConfig{}, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := db.AutoMigrate(&repository.SessionModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed")

		gormRepo := repository.NewGormSessionRepository(db)
		sessionRepo = gormRepo
		checks["database"] = gormRepo
	}

	// Upstream clients
	routingClient := osrm.NewClient(osrm.Config{
		BaseURL: cfg.OSRM.BaseURL,
		Profile: cfg.OSRM.Profile,
		Timeout: cfg.OSRM.Timeout,
	}, recorder, log.Named("osrm"))

	summaryClient := summarizer.NewClient(summarizer.Config{
		BaseURL:   cfg.Summary.BaseURL,
		APIKey:    cfg.Summary.APIKey,
		Model:     cfg.Summary.Model,
		MaxTokens: cfg.Summary.MaxTokens,
		Timeout:   cfg.Summary.Timeout,
	}, recorder, log.Named("summarizer"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize application services. With Kafka enabled, route set events
	// go through the broker and are consumed back to trigger summaries;
	// otherwise a local bus delivers them in-process.
	summaryCfg := application.SummaryConfig{
		SessionTTL: cfg.Session.TTL,
		AutoSelect: cfg.Summary.AutoSelect,
	}

	var (
		planPublisher  application.EventPublisher
		summaryService *application.SummaryService
	)
	if cfg.KafkaConfig.Enabled {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()

		planPublisher = kafkaProducer
		summaryService = application.NewSummaryService(sessionRepo, summaryClient, kafkaProducer, summaryCfg, recorder, log)

		routeSetConsumer := routingEvents.NewRouteSetEventConsumer(
			cfg.KafkaConfig.Brokers,
			cfg.KafkaConfig.GroupID("summary"),
			summaryService,
			log,
		)
		defer func() { _ = routeSetConsumer.Close() }()

		go func() {
			log.Info("starting route set event consumer")
			if err := routeSetConsumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("route set event consumer error", zap.Error(err))
			}
		}()
	} else {
		summaryService = application.NewSummaryService(sessionRepo, summaryClient, nil, summaryCfg, recorder, log)

		localHandler := routingEvents.NewRouteSetEventHandler(summaryService, log)
		localBus := routingEvents.NewLocalBus(localHandler.HandleMessage, 2*cfg.Summary.Timeout, log)
		defer func() { _ = localBus.Close() }()

		planPublisher = localBus
	}

	snapper := application.NewGeocodeSnapper(routingClient, cfg.OSRM.SnapTimeout, log)
	fetcher := application.NewRouteFetcher(routingClient, cfg.OSRM.Timeout, recorder, log)
	planningService := application.NewPlanningService(
		sessionRepo,
		snapper,
		fetcher,
		planPublisher,
		application.PlanningConfig{
			SessionTTL:    cfg.Session.TTL,
			MarkerSpacing: cfg.Session.MarkerSpacing,
			MaxMarkers:    cfg.Session.MaxMarkers,
		},
		log,
	)

	go planningService.RunSweeper(ctx, cfg.Session.SweepInterval)

	// Initialize HTTP handlers
	planHandler := handler.NewPlanHandler(planningService)
	summaryHandler := handler.NewSummaryHandler(summaryService)
	adminHandler := handler.NewAdminSessionHandler(planningService)

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health and metrics routes
	healthHandler := health.NewHandler(serviceName, checks)
	healthHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Register routes
	planHandler.RegisterRoutes(&router.RouterGroup)
	summaryHandler.RegisterRoutes(&router.RouterGroup)
	adminHandler.RegisterRoutes(&router.RouterGroup)

	// Create HTTP server. Route acquisition runs up to three stages of
	// upstream calls, so the write timeout leaves room for all of them.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-routing...")

	// Stop the consumer and the sweeper
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-routing stopped")
}
