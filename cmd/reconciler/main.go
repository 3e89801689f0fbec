package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pixel-money/wallet-core/internal/config"
	"github.com/pixel-money/wallet-core/internal/data/mongo"
	"github.com/pixel-money/wallet-core/internal/logger"
	"github.com/pixel-money/wallet-core/internal/platform/messaging/consumers"
	"github.com/pixel-money/wallet-core/internal/platform/messaging/producers"
	"github.com/pixel-money/wallet-core/internal/platform/persistence"
	"github.com/pixel-money/wallet-core/internal/reconciler"
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

	// Initialize MongoDB with app context
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Client(), mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka producers
	escalationProducer, err := producers.NewEscalationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize escalation Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// A nil concrete producer means the DLQ is disabled; keep the interface
	// nil too so the handler's nil check works.
	var dlq producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlq = dlqProducer
	}

	// Initialize the review service behind a worker pool
	triageService := reconciler.NewTriageService(log.With("component", "triage"), ledgerRepo)

	var reviewService reconciler.ReviewService = triageService
	workerPoolService, err := reconciler.NewWorkerPoolReviewService(
		triageService,
		reconciler.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log.With("component", "worker_pool"),
	)
	if err != nil {
		log.Error("Failed to create worker pool service, falling back to base service", "error", err)
	} else {
		log.Info("Created worker pool review service", "pool_size", cfg.WorkerPool.Size)
		reviewService = workerPoolService
	}

	// Initialize escalation event handler
	escalationEventHandler := reconciler.NewEscalationEventHandler(
		log,
		reviewService,
		dlq,
	)

	// Initialize ledger poller
	poller := reconciler.NewPoller(
		&cfg.Reconciler,
		ledgerRepo,
		escalationProducer,
		log.With("component", "poller"),
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
			"topic", cfg.Kafka.EscalationTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.EscalationTopic, cfg.Kafka.ConsumerGroup, escalationEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start ledger poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting ledger poller",
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

	// Shutdown the worker pool if it was created
	if workerPoolService != nil {
		log.Info("Shutting down worker pool", "running_workers", workerPoolService.Running())
		workerPoolService.Shutdown()
	}

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

	if err = escalationProducer.Close(); err != nil {
		log.Error("Error closing escalation Kafka producer", "error", err)
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

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
