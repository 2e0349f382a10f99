package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/textmock/textmock-server/internal/api/middleware"
	"github.com/textmock/textmock-server/internal/domain/account"
	"github.com/textmock/textmock-server/internal/domain/identity"
	"github.com/textmock/textmock-server/internal/domain/ledger"
	"github.com/textmock/textmock-server/internal/service"
)

// WalletHandler handles HTTP requests for token balance operations
type WalletHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, ledgerService service.LedgerService) *WalletHandler {
	return &WalletHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// GetBalance returns the caller's authoritative token balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	ident := middleware.GetIdentity(c)

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), ident)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			RespondUnauthorized(c, "")
			return
		}
		h.logger.Error("Failed to get balance", "account_id", ident.AccountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, BalanceResponse{Balance: balance})
}

// BuyTokens simulates a token purchase and credits the balance
func (h *WalletHandler) BuyTokens(c *gin.Context) {
	ident := middleware.GetIdentity(c)

	var req BuyTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	newBalance, err := h.ledgerService.BuyTokens(c.Request.Context(), ident, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUnauthorized):
			RespondUnauthorized(c, "")
		case errors.Is(err, account.ErrInvalidAmount):
			RespondBadRequest(c, "Amount must be positive")
		default:
			h.logger.Error("Failed to buy tokens", "account_id", ident.AccountID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, BuyTokensResponse{NewBalance: newBalance})
}

// GetTransactions retrieves the caller's paginated audit history
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	ident := middleware.GetIdentity(c)

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.ledgerService.GetTransactions(c.Request.Context(), ident, pagination.Page, pagination.PerPage)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			RespondUnauthorized(c, "")
			return
		}
		h.logger.Error("Failed to get transactions", "account_id", ident.AccountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	var transactions []TransactionResponse
	for _, entry := range entries {
		transactions = append(transactions, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, transactions, pagination.Page, pagination.PerPage, int(total))
}

// AuditBalance reconciles the caller's balance against the audit log
func (h *WalletHandler) AuditBalance(c *gin.Context) {
	ident := middleware.GetIdentity(c)

	report, err := h.ledgerService.AuditBalance(c.Request.Context(), ident)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			RespondUnauthorized(c, "")
			return
		}
		h.logger.Error("Failed to audit balance", "account_id", ident.AccountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, AuditResponse{
		AccountID:  report.AccountID.String(),
		Balance:    report.Balance,
		EntrySum:   report.EntrySum,
		Consistent: report.Consistent,
	})
}

// mapEntryToResponse maps a ledger entry to a transaction response DTO
func mapEntryToResponse(entry *ledger.Entry) TransactionResponse {
	return TransactionResponse{
		EntryID:     entry.EntryID.String(),
		Kind:        string(entry.Kind),
		Amount:      entry.Amount,
		ReferenceID: entry.ReferenceID,
		CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
	}
}
