package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pixel-money/wallet-core/internal/api/middleware"
	"github.com/pixel-money/wallet-core/internal/api/service"
	"github.com/pixel-money/wallet-core/internal/domain/idempotency"
	"github.com/pixel-money/wallet-core/internal/orchestrator"
)

// IdempotencyKeyHeader carries the client-chosen key that makes a
// money-moving request safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// TransactionHandler handles HTTP requests for money-moving operations
// and ledger reads
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// callerAndKey extracts the authenticated user and the idempotency key,
// writing the error response itself when either is unusable.
func (h *TransactionHandler) callerAndKey(c *gin.Context) (int64, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "Missing user identity")
		return 0, uuid.Nil, false
	}

	key, err := idempotency.ParseKey(c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		RespondBadRequest(c, "Idempotency-Key header must be a valid UUID")
		return 0, uuid.Nil, false
	}

	return userID, key, true
}

// Deposit tops up the caller's wallet
func (h *TransactionHandler) Deposit(c *gin.Context) {
	userID, key, ok := h.callerAndKey(c)
	if !ok {
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.transactionService.Deposit(c.Request.Context(), orchestrator.DepositCommand{
		IdempotencyKey: key,
		UserID:         userID,
		Amount:         req.Amount,
	})
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// Transfer sends money to an account at a partner bank
func (h *TransactionHandler) Transfer(c *gin.Context) {
	userID, key, ok := h.callerAndKey(c)
	if !ok {
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.transactionService.Transfer(c.Request.Context(), orchestrator.TransferCommand{
		IdempotencyKey:   key,
		UserID:           userID,
		DestinationBank:  req.DestinationBank,
		DestinationPhone: req.DestinationPhone,
		Amount:           req.Amount,
		Description:      req.Description,
	})
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// P2P sends money to another wallet user addressed by phone number
func (h *TransactionHandler) P2P(c *gin.Context) {
	userID, key, ok := h.callerAndKey(c)
	if !ok {
		return
	}

	var req P2PRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.transactionService.P2PTransfer(c.Request.Context(), orchestrator.P2PCommand{
		IdempotencyKey: key,
		SenderID:       userID,
		RecipientPhone: req.RecipientPhone,
		Amount:         req.Amount,
	})
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// Contribute moves money from the caller into a group wallet
func (h *TransactionHandler) Contribute(c *gin.Context) {
	userID, key, ok := h.callerAndKey(c)
	if !ok {
		return
	}

	var req ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.transactionService.Contribute(c.Request.Context(), orchestrator.ContributionCommand{
		IdempotencyKey: key,
		UserID:         userID,
		GroupID:        req.GroupID,
		Amount:         req.Amount,
	})
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// GroupWithdrawal moves money from a group wallet to the caller
func (h *TransactionHandler) GroupWithdrawal(c *gin.Context) {
	userID, key, ok := h.callerAndKey(c)
	if !ok {
		return
	}

	var req GroupWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.transactionService.GroupWithdrawal(c.Request.Context(), orchestrator.GroupWithdrawalCommand{
		IdempotencyKey: key,
		UserID:         userID,
		GroupID:        req.GroupID,
		Amount:         req.Amount,
	})
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// Inbound receives a transfer from a partner bank. Deduplication rides on
// the partner's transaction id, not a client header.
func (h *TransactionHandler) Inbound(c *gin.Context) {
	var req InboundTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.transactionService.InboundTransfer(c.Request.Context(), orchestrator.InboundTransferCommand{
		OriginBank:            req.OriginBank,
		ExternalTransactionID: req.TransactionID,
		DestinationPhone:      req.DestinationPhoneNumber,
		Amount:                req.Amount,
		Currency:              req.Currency,
		Description:           req.Description,
	})
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// DisburseLoan pays a loan into the caller's wallet
func (h *TransactionHandler) DisburseLoan(c *gin.Context) {
	userID, key, ok := h.callerAndKey(c)
	if !ok {
		return
	}

	var req LoanDisbursementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.transactionService.DisburseLoan(c.Request.Context(), orchestrator.LoanDisbursementCommand{
		IdempotencyKey: key,
		UserID:         userID,
		Principal:      req.Amount,
	})
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// PayLoan settles the caller's active loan in full
func (h *TransactionHandler) PayLoan(c *gin.Context) {
	userID, key, ok := h.callerAndKey(c)
	if !ok {
		return
	}

	tx, err := h.transactionService.PayLoan(c.Request.Context(), orchestrator.LoanPaymentCommand{
		IdempotencyKey: key,
		UserID:         userID,
	})
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// GetByID retrieves one ledger record
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.transactionService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// ListMine returns the caller's transaction history, newest first
func (h *TransactionHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "Missing user identity")
		return
	}

	var params ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	txs, err := h.transactionService.ListUserTransactions(c.Request.Context(), userID, params.Limit)
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondOK(c, mapTransactionsToResponse(txs))
}

// ListByGroup returns a group's transaction history, newest first
func (h *TransactionHandler) ListByGroup(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil || groupID <= 0 {
		RespondBadRequest(c, "Invalid group id")
		return
	}

	var params ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	txs, err := h.transactionService.ListGroupTransactions(c.Request.Context(), groupID, params.Limit)
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondOK(c, mapTransactionsToResponse(txs))
}

// DailyBalance returns the caller's end-of-day balances, oldest first
func (h *TransactionHandler) DailyBalance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "Missing user identity")
		return
	}

	var params DailyBalanceParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	balances, err := h.transactionService.DailyBalances(c.Request.Context(), userID, params.Days)
	if err != nil {
		RespondOpError(c, err)
		return
	}

	RespondOK(c, gin.H{"daily_balances": balances})
}
