package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pixel-money/wallet-core/internal/api"
	"github.com/pixel-money/wallet-core/internal/api/service"
	"github.com/pixel-money/wallet-core/internal/config"
	"github.com/pixel-money/wallet-core/internal/data/mongo"
	"github.com/pixel-money/wallet-core/internal/data/postgres"
	"github.com/pixel-money/wallet-core/internal/logger"
	"github.com/pixel-money/wallet-core/internal/metrics"
	"github.com/pixel-money/wallet-core/internal/orchestrator"
	"github.com/pixel-money/wallet-core/internal/platform/clients"
	"github.com/pixel-money/wallet-core/internal/platform/messaging/producers"
	"github.com/pixel-money/wallet-core/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("wallet_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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

	// Initialize Kafka escalation producer
	escalationProducer, err := producers.NewEscalationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize escalation Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	groupAccountRepo := postgres.NewGroupAccountRepository(log, postgresDB)
	loanRepo := postgres.NewLoanRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Client(), mongoDB.Database())
	idempotencyRepo := mongo.NewIdempotencyRepository(log, mongoDB.Database())

	// Initialize collaborator clients
	identityClient := clients.NewIdentityClient(log.With("client", "identity"), &cfg.Collaborators)
	interbankClient := clients.NewInterbankClient(log.With("client", "interbank"), &cfg.Collaborators)
	groupClient := clients.NewGroupServiceClient(log.With("client", "group_service"), &cfg.Collaborators)

	registry := metrics.NewRegistry()

	// Initialize services
	accountService := service.NewAccountService(accountRepo, groupAccountRepo, loanRepo)
	transactionService := orchestrator.New(
		log.With("component", "orchestrator"),
		accountRepo,
		groupAccountRepo,
		loanRepo,
		ledgerRepo,
		idempotencyRepo,
		identityClient,
		interbankClient,
		groupClient,
		escalationProducer,
		registry,
		&cfg.Loan,
	)

	// Initialize REST server
	server := api.NewServer(log, cfg, accountService, transactionService, registry)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = escalationProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
