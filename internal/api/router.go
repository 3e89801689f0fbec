package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pixel-money/wallet-core/internal/api/handler"
	"github.com/pixel-money/wallet-core/internal/api/middleware"
	"github.com/pixel-money/wallet-core/internal/metrics"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	transactionHandler *handler.TransactionHandler,
	registry *metrics.Registry,
	partnerAPIKey string,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Identity())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Wallet accounts
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("/balance", accountHandler.GetBalance)
			accounts.DELETE("/:user_id", accountHandler.Delete)
		}

		groupAccounts := v1.Group("/group-accounts")
		{
			groupAccounts.POST("", accountHandler.CreateGroup)
			groupAccounts.GET("/:group_id/balance", accountHandler.GetGroupBalance)
		}

		// Money movement and ledger reads
		transactions := v1.Group("/transactions")
		{
			transactions.POST("/deposit", transactionHandler.Deposit)
			transactions.POST("/transfer", transactionHandler.Transfer)
			transactions.POST("/p2p", transactionHandler.P2P)
			transactions.POST("/contribute", transactionHandler.Contribute)
			// Service-to-service surface: group withdrawals arrive from the
			// group service after leader approval, inbound transfers from
			// partner banks. Both carry the shared-secret header.
			transactions.POST("/group-withdrawal", middleware.APIKey(partnerAPIKey), transactionHandler.GroupWithdrawal)
			transactions.POST("/inbound", middleware.APIKey(partnerAPIKey), transactionHandler.Inbound)
			transactions.GET("/me", transactionHandler.ListMine)
			transactions.GET("/group/:group_id", transactionHandler.ListByGroup)
			transactions.GET("/:id", transactionHandler.GetByID)
		}

		loans := v1.Group("/loans")
		{
			loans.POST("/disburse", transactionHandler.DisburseLoan)
			loans.POST("/pay", transactionHandler.PayLoan)
		}

		v1.GET("/analytics/daily-balance", transactionHandler.DailyBalance)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Operation counters
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, registry.Snapshot())
	})
}
