package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astroshop/fraud-detection/pkg"
	"github.com/astroshop/fraud-detection/pkg/cache"
	"github.com/astroshop/fraud-detection/pkg/database"
	"github.com/astroshop/fraud-detection/pkg/flags"
	kafkautils "github.com/astroshop/fraud-detection/pkg/kafka"
	"github.com/astroshop/fraud-detection/pkg/repositories"
	"github.com/astroshop/fraud-detection/services/fraud-worker/configs"
	"github.com/astroshop/fraud-detection/services/fraud-worker/internal/server"
	"github.com/astroshop/fraud-detection/services/fraud-worker/internal/services"
	"go.uber.org/zap"
)

// main initializes and runs the fraud detection worker.
func main() {
	// Initialize global logger with default configuration
	pkg.InitLogger()
	logger := pkg.Logger
	defer logger.Sync() // Ensure all buffered logs are flushed on exit

	// Load configuration from environment and optional config file.
	// Missing required config (brokers, database) is fatal: there is no
	// point running half-configured.
	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed_to_load_config", zap.Error(err))
	}

	// Initialize PostgreSQL database connection
	db, disconnect, err := database.New(context.Background(), logger, database.Config{
		PrimaryDSN: cfg.PrimaryDbAddr,
		MaxConns:   cfg.MaxDbCons,
		MinConns:   cfg.MinDbCons,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer disconnect() // Ensure database connections are closed on shutdown

	if err := database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Create a context that can be canceled for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Feature flags come from Redis when configured. An absent or
	// unreachable flag backend is not fatal: flags default to disabled.
	var flagProvider flags.Provider = flags.StaticProvider(nil)
	redisCloser := func() {}
	if cfg.RedisAddr != "" {
		redisClient, closer, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Warn("flag backend unreachable, all flags disabled", zap.Error(err))
		} else {
			flagProvider = flags.NewRedisProvider(redisClient, logger)
			redisCloser = closer
			logger.Info("flag backend initialized", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		logger.Warn("no flag backend configured, all flags disabled")
	}

	// Make sure the order topic exists before subscribing
	if err := kafkautils.InitKafkaTopics(logger, ctx, kafkautils.KafkaConfig{
		BootstrapServers: cfg.KafkaBrokers,
		Topics: []kafkautils.TopicConfig{
			{Topic: cfg.KafkaOrderTopic, NumPartitions: 4, ReplicationFactor: 1},
		},
	}); err != nil {
		logger.Fatal("failed to initialize kafka topics", zap.Error(err))
	}

	// Repositories and domain services
	orderLogRepo := repositories.NewOrderLogRepository(logger, db)
	alertRepo := repositories.NewFraudAlertRepository(logger, db)
	engine := services.NewFraudAnalyticsEngine(services.FraudEngineConfig{
		Logger:    logger,
		AlertRepo: alertRepo,
	})
	mutator := services.NewOrderMutator(logger, time.Now().UnixNano())
	injector := services.NewBadQueryInjector(logger, orderLogRepo, time.Now().UnixNano())

	// Background retention pruning
	cleanup := services.NewCleanupScheduler(services.CleanupConfig{
		Context:       ctx,
		Logger:        logger,
		RetentionDays: cfg.RetentionDays,
		Interval:      time.Duration(cfg.CleanupIntervalHours) * time.Hour,
		OrderLogRepo:  orderLogRepo,
		AlertRepo:     alertRepo,
	})
	closeCleanup := cleanup.Start()

	// Consumer loop
	poller, err := services.NewKafkaBatchPoller(logger, cfg)
	if err != nil {
		logger.Fatal("failed to create kafka consumer", zap.Error(err))
	}
	consumer := services.NewOrderConsumer(services.OrderConsumerConfig{
		Context:      ctx,
		Logger:       logger,
		Config:       cfg,
		Poller:       poller,
		Flags:        flagProvider,
		Mutator:      mutator,
		Engine:       engine,
		Injector:     injector,
		OrderLogRepo: orderLogRepo,
	})
	closeConsumer := consumer.Start()

	// Metrics and health endpoint
	srv := server.New(logger, cfg.MetricsAddr, db)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	// Handle graceful shutdown on SIGINT or SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	osSignal := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", osSignal.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel() // Trigger context cancellation
	closeConsumer()
	closeCleanup()
	_ = srv.Shutdown(shutdownCtx)
	redisCloser()
	logger.Info("Service shutdown completed successfully")
}
