package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/textmock/textmock-server/internal/config"
	"github.com/textmock/textmock-server/internal/data/mongo"
	"github.com/textmock/textmock-server/internal/data/postgres"
	"github.com/textmock/textmock-server/internal/logger"
	"github.com/textmock/textmock-server/internal/platform/messaging/consumers"
	"github.com/textmock/textmock-server/internal/platform/messaging/producers"
	"github.com/textmock/textmock-server/internal/platform/persistence"
	"github.com/textmock/textmock-server/internal/reconciler"
	"github.com/textmock/textmock-server/internal/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reconciler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciler",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	anomalyRepo := postgres.NewAnomalyRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())
	scenarioRepo := mongo.NewScenarioRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// The reconciler charges through the same ledger engine the API uses.
	// It publishes no anomaly events of its own; the poller re-sweeps
	// whatever it leaves behind.
	ledgerService := service.NewLedgerService(log, cfg.Ledger, accountRepo, ledgerRepo, anomalyRepo, nil)

	// Initialize resolution service behind a worker pool
	resolver := reconciler.NewResolver(log, &cfg.Reconciler, anomalyRepo, ledgerRepo, scenarioRepo, ledgerService)
	resolutionService, err := reconciler.NewWorkerPoolResolutionService(resolver, cfg.WorkerPool, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize anomaly event handler
	anomalyEventHandler := reconciler.NewAnomalyEventHandler(
		log,
		anomalyRepo,
		resolutionService,
		dlqProducer,
	)

	// Initialize anomaly poller
	poller := reconciler.NewPoller(
		&cfg.Reconciler,
		anomalyRepo,
		resolutionService,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.AnomalyTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.AnomalyTopic, cfg.Kafka.ConsumerGroup, anomalyEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start anomaly poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting anomaly poller",
			"interval", cfg.Reconciler.PollingInterval.String(),
			"batch_size", cfg.Reconciler.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	log.Info("Shutting down worker pool", "running_workers", resolutionService.Running())
	resolutionService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Reconciler shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Reconciler shutdown completed with errors")
	} else {
		log.Info("Reconciler shutdown completed successfully")
	}
}
