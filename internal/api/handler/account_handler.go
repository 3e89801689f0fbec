package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pixel-money/wallet-core/internal/api/middleware"
	"github.com/pixel-money/wallet-core/internal/api/service"
	"github.com/pixel-money/wallet-core/internal/domain/wallet"
)

// AccountHandler handles HTTP requests for wallet account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Create opens a wallet for a user, rejecting duplicates
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), req.UserID)
	if err != nil {
		var exists wallet.ErrAccountAlreadyExists
		if errors.As(err, &exists) {
			h.logger.Warn("Attempt to create duplicate account", "user_id", exists.UserID)
			RespondConflict(c, "Account already exists for this user")
			return
		}
		h.logger.Error("Failed to create account", "user_id", req.UserID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapAccountToBalance(acc))
}

// GetBalance returns the authenticated caller's wallet balance
func (h *AccountHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "Missing user identity")
		return
	}

	acc, err := h.accountService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, wallet.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get balance", "user_id", userID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToBalance(acc))
}

// Delete closes a wallet. A remaining balance or active loan blocks the
// close and reports the blocking amount.
func (h *AccountHandler) Delete(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		RespondBadRequest(c, "Invalid user id")
		return
	}

	if err := h.accountService.DeleteAccount(c.Request.Context(), userID); err != nil {
		var obligation wallet.ErrOutstandingObligation
		if errors.As(err, &obligation) {
			RespondWithError(c, http.StatusConflict, "HAS_OUTSTANDING_OBLIGATION",
				"Cannot close account with an outstanding obligation of "+obligation.Amount.StringFixed(2))
			return
		}
		if errors.Is(err, wallet.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to delete account", "user_id", userID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// CreateGroup opens a shared wallet for a group
func (h *AccountHandler) CreateGroup(c *gin.Context) {
	var req CreateGroupAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.CreateGroupAccount(c.Request.Context(), req.GroupID)
	if err != nil {
		var exists wallet.ErrGroupAccountAlreadyExists
		if errors.As(err, &exists) {
			RespondConflict(c, "Group account already exists")
			return
		}
		h.logger.Error("Failed to create group account", "group_id", req.GroupID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapGroupAccountToBalance(acc))
}

// GetGroupBalance returns a group's shared wallet balance
func (h *AccountHandler) GetGroupBalance(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil || groupID <= 0 {
		RespondBadRequest(c, "Invalid group id")
		return
	}

	acc, err := h.accountService.GetGroupBalance(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, wallet.ErrGroupAccountNotFound{}) {
			RespondNotFound(c, "Group account not found")
			return
		}
		h.logger.Error("Failed to get group balance", "group_id", groupID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapGroupAccountToBalance(acc))
}
