package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/stock-ledger-service/pkg/api"
	"github.com/wms-platform/stock-ledger-service/pkg/idempotency"
	"github.com/wms-platform/stock-ledger-service/pkg/kafka"
	"github.com/wms-platform/stock-ledger-service/pkg/logging"
	"github.com/wms-platform/stock-ledger-service/pkg/metrics"
	"github.com/wms-platform/stock-ledger-service/pkg/middleware"
	"github.com/wms-platform/stock-ledger-service/pkg/mongodb"
	"github.com/wms-platform/stock-ledger-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/stock-ledger-service/pkg/outbox/mongodb"
	"github.com/wms-platform/stock-ledger-service/pkg/tracing"

	"github.com/wms-platform/stock-ledger-service/internal/application"
	mongoRepo "github.com/wms-platform/stock-ledger-service/internal/infrastructure/mongodb"
)

const serviceName = "stock-ledger-service"

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting stock-ledger-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB with instrumentation
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
	defer instrumentedMongo.Close(ctx)
	cbMongo := mongodb.NewCircuitBreakerClient(instrumentedMongo, logger)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize idempotency indexes
	if err := idempotency.InitializeIndexes(ctx, instrumentedMongo.Database()); err != nil {
		logger.WithError(err).Warn("Failed to initialize idempotency indexes")
	} else {
		logger.Info("Idempotency indexes initialized")
	}

	// Initialize Kafka producer with instrumentation
	kafkaProducer := kafka.NewProducer(config.Kafka)
	instrumentedProducer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	defer instrumentedProducer.Close()
	// The breaker sheds outbox publishes while the brokers are down
	// instead of hammering them on every poll.
	cbProducer := kafka.NewCircuitBreakerProducer(instrumentedProducer, logger)
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize repositories
	db := instrumentedMongo.Database()
	refRepo := mongoRepo.NewReferenceRepository(db)
	balanceRepo := mongoRepo.NewBalanceRepository(db)
	eventRepo := mongoRepo.NewEventRepository(db)
	outboxRepo := outboxMongo.NewOutboxRepository(db)
	// The circuit breaker guards every ledger transaction.
	txManager := mongoRepo.NewTransactionManagerWithRunner(cbMongo)
	logger.Info("Repositories initialized")

	// Initialize idempotency repository for HTTP request deduplication
	idempotencyKeyRepo := idempotency.NewMongoKeyRepository(db)

	// Initialize and start outbox publisher
	outboxPublisher := outbox.NewPublisher(
		outboxRepo,
		cbProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize application services
	ledgerService := application.NewLedgerApplicationService(
		refRepo,
		balanceRepo,
		eventRepo,
		outboxRepo,
		txManager,
		logger,
		kafka.Topics.LedgerEvents,
	)
	queryService := application.NewQueryApplicationService(
		balanceRepo,
		eventRepo,
		outboxRepo,
		logger,
		kafka.Topics.ReconciliationEvents,
	)
	logger.Info("Application services initialized")

	// Setup Gin router with middleware
	router := gin.New()

	// Apply standard middleware (includes recovery, request ID, correlation, logging, error handling)
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Propagate CloudEvents correlation extensions
	router.Use(middleware.CloudEvents())
	router.Use(middleware.CloudEventsLogger(logger))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return cbMongo.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes with tenant context required
	api := router.Group("/api/v1/ledger")
	api.Use(middleware.RequireTenantAuth())

	// Idempotency protection for the mutating routes
	idempotencyConfig := idempotency.DefaultConfig(serviceName, idempotencyKeyRepo)
	idempotencyConfig.Metrics = idempotency.NewMetrics(m.Registry())
	api.Use(idempotency.Middleware(idempotencyConfig))
	{
		api.POST("/events", applyEventHandler(ledgerService, logger))
		api.POST("/convert", convertHandler(ledgerService, logger))

		api.GET("/balances/:itemId", listBalancesHandler(queryService, logger))
		api.GET("/balances/:itemId/:locationId", getBalanceHandler(queryService, logger))
		api.GET("/events/:itemId", listEventsHandler(queryService, logger))
		api.GET("/events/id/:eventId", getEventHandler(queryService, logger))
		api.GET("/replay/:itemId", replayHandler(queryService, logger))
		api.POST("/reconcile/:itemId", reconcileHandler(queryService, logger))
	}

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8010"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "stock_ledger_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func applyEventHandler(service *application.LedgerApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Error logs on the mutating path carry the CloudEvents
		// correlation extensions.
		log := middleware.GetEnrichedLogger(c, logger)
		responder := middleware.NewErrorResponder(c, log.Logger)

		var cmd application.ApplyEventCommand
		if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		tc := middleware.GetTenantContext(c)
		cmd.TenantID = tc.TenantID
		cmd.SiteID = tc.SiteID
		cmd.ActorID = tc.ActorID
		if cmd.WorkcellID == "" {
			cmd.WorkcellID = tc.WorkcellID
		}
		if cmd.DeviceID == "" {
			cmd.DeviceID = tc.DeviceID
		}

		result, err := service.ApplyEvent(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithAppError(application.MapError(err))
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func convertHandler(service *application.LedgerApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.ConvertQuantityCommand
		if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		cmd.TenantID = middleware.GetTenantID(c)

		result, err := service.ConvertQuantity(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithAppError(application.MapError(err))
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getBalanceHandler(service *application.QueryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetBalanceQuery{
			TenantID:   middleware.GetTenantID(c),
			ItemID:     c.Param("itemId"),
			LocationID: c.Param("locationId"),
		}

		balance, err := service.GetBalance(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithAppError(application.MapError(err))
			return
		}

		c.JSON(http.StatusOK, balance)
	}
}

func listBalancesHandler(service *application.QueryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.ListBalancesQuery{
			TenantID: middleware.GetTenantID(c),
			ItemID:   c.Param("itemId"),
		}

		balances, err := service.ListBalances(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithAppError(application.MapError(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"balances": balances,
			"count":    len(balances),
		})
	}
}

func listEventsHandler(service *application.QueryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		page := api.ParsePagination(c)

		query := application.ListEventsQuery{
			TenantID: middleware.GetTenantID(c),
			ItemID:   c.Param("itemId"),
			Limit:    int(page.GetLimit()),
			Offset:   int(page.GetOffset()),
		}

		events, err := service.ListEvents(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithAppError(application.MapError(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"events":   events,
			"count":    len(events),
			"page":     page.Page,
			"pageSize": page.PageSize,
		})
	}
}

func getEventHandler(service *application.QueryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		event, err := service.GetEvent(c.Request.Context(), middleware.GetTenantID(c), c.Param("eventId"))
		if err != nil {
			responder.RespondWithAppError(application.MapError(err))
			return
		}

		c.JSON(http.StatusOK, event)
	}
}

func replayHandler(service *application.QueryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.ReplayQuery{
			TenantID: middleware.GetTenantID(c),
			ItemID:   c.Param("itemId"),
			Upto:     c.Query("upto"),
		}

		replay, err := service.Replay(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithAppError(application.MapError(err))
			return
		}

		c.JSON(http.StatusOK, replay)
	}
}

func reconcileHandler(service *application.QueryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		tc := middleware.GetTenantContext(c)
		cmd := application.ReconcileCommand{
			TenantID: tc.TenantID,
			ItemID:   c.Param("itemId"),
			ActorID:  tc.ActorID,
		}

		report, err := service.Reconcile(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithAppError(application.MapError(err))
			return
		}

		c.JSON(http.StatusOK, report)
	}
}
