// The bank_simulator binary stands in for the Happy Money partner bank
// in local and integration setups. It implements the fixed interbank
// contract: shared-secret authentication, a transfer amount limit, and
// deterministic rejection rules keyed off the destination phone number.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	bankName        = "HAPPY_MONEY"
	apiKeyHeader    = "X-API-Key"
	defaultPort     = "8100"
	defaultAPIKey   = "dev-secret-key"
	shutdownTimeout = 10 * time.Second
)

var transferLimit = decimal.NewFromInt(10000)

type transferRequest struct {
	OriginBank             string          `json:"origin_bank" binding:"required"`
	OriginAccountID        string          `json:"origin_account_id" binding:"required"`
	DestinationBank        string          `json:"destination_bank" binding:"required"`
	DestinationPhoneNumber string          `json:"destination_phone_number" binding:"required"`
	Amount                 decimal.Decimal `json:"amount" binding:"required"`
	Currency               string          `json:"currency" binding:"required"`
	TransactionID          string          `json:"transaction_id" binding:"required"`
	Description            string          `json:"description,omitempty"`
}

func rejection(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"detail": gin.H{
			"error_code": code,
			"message":    message,
		},
	})
}

func handleTransfer(log *slog.Logger, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(apiKeyHeader) != apiKey {
			rejection(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing API key")
			return
		}

		var req transferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			rejection(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Malformed transfer request: "+err.Error())
			return
		}

		if req.DestinationBank != bankName {
			rejection(c, http.StatusBadRequest, "INVALID_DESTINATION_BANK",
				"This bank only accepts transfers addressed to "+bankName)
			return
		}

		if req.Amount.GreaterThan(transferLimit) {
			rejection(c, http.StatusBadRequest, "AMOUNT_LIMIT_EXCEEDED",
				"Transfer amount exceeds the limit of "+transferLimit.StringFixed(2))
			return
		}

		// Deterministic test fixtures: phone prefixes select the outcome.
		switch {
		case strings.HasPrefix(req.DestinationPhoneNumber, "999"):
			rejection(c, http.StatusNotFound, "ACCOUNT_NOT_FOUND",
				"No account holds the destination phone number")
			return
		case strings.HasPrefix(req.DestinationPhoneNumber, "988"):
			rejection(c, http.StatusForbidden, "ACCOUNT_BLOCKED",
				"The destination account is blocked")
			return
		}

		remoteID := "HAPPY-" + uuid.New().String()
		log.Info("Transfer accepted",
			"transaction_id", req.TransactionID,
			"origin_bank", req.OriginBank,
			"amount", req.Amount.StringFixed(2),
			"remote_transaction_id", remoteID,
		)

		c.JSON(http.StatusOK, gin.H{
			"status":                "ACCEPTED",
			"remote_transaction_id": remoteID,
		})
	}
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "bank_simulator")

	port := os.Getenv("BANK_SIMULATOR_PORT")
	if port == "" {
		port = defaultPort
	}
	apiKey := os.Getenv("INTERBANK_API_KEY")
	if apiKey == "" {
		apiKey = defaultAPIKey
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/transfers", handleTransfer(log, apiKey))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "bank": bankName})
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: router,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting bank simulator", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}
	log.Info("Bank simulator stopped")
}
