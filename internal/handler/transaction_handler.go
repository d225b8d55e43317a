package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/journal"
	"github.com/crestbank/corebank/internal/ledger"
	"github.com/crestbank/corebank/internal/middleware"
	"github.com/crestbank/corebank/internal/orchestrator"
)

// TransactionCoordinator is the policy pipeline behind the money endpoints.
type TransactionCoordinator interface {
	Deposit(ctx context.Context, req orchestrator.MoveRequest) (*domain.JournalEntry, error)
	Withdraw(ctx context.Context, req orchestrator.MoveRequest) (*domain.JournalEntry, error)
	Transfer(ctx context.Context, req orchestrator.TransferRequest) (*ledger.TransferResult, error)
	Balance(ctx context.Context, subject, accountID string) (decimal.Decimal, error)
	History(ctx context.Context, subject, accountID string, q journal.Query) ([]domain.JournalEntry, error)
}

type TransactionHandler struct {
	coordinator TransactionCoordinator
}

func NewTransactionHandler(coordinator TransactionCoordinator) *TransactionHandler {
	return &TransactionHandler{coordinator: coordinator}
}

// MoveFundsRequest is the body for deposits and withdrawals. Amount accepts a
// JSON number or string and must have at most two decimal places.
type MoveFundsRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"omitempty,max=200"`
}

type TransferFundsRequest struct {
	SourceID string          `json:"source_id" validate:"required"`
	DestID   string          `json:"dest_id" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

type TransactionResponse struct {
	Transaction  *domain.JournalEntry `json:"transaction"`
	BalanceAfter string               `json:"balance_after"`
}

type TransferResponse struct {
	Transaction  *domain.JournalEntry `json:"transaction"`
	BalanceAfter string               `json:"balance_after"`
}

type BalanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   string `json:"balance"`
}

type HistoryResponse struct {
	Transactions []domain.JournalEntry `json:"transactions"`
}

func (h *TransactionHandler) Deposit(c *gin.Context) {
	h.move(c, h.coordinator.Deposit)
}

func (h *TransactionHandler) Withdraw(c *gin.Context) {
	h.move(c, h.coordinator.Withdraw)
}

func (h *TransactionHandler) move(c *gin.Context, op func(context.Context, orchestrator.MoveRequest) (*domain.JournalEntry, error)) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req MoveFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	entry, err := op(c.Request.Context(), orchestrator.MoveRequest{
		Subject:        userID,
		AccountID:      c.Param("accountId"),
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, TransactionResponse{
		Transaction:  entry,
		BalanceAfter: entry.BalanceAfter.StringFixed(domain.MoneyScale),
	})
}

func (h *TransactionHandler) Transfer(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req TransferFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	result, err := h.coordinator.Transfer(c.Request.Context(), orchestrator.TransferRequest{
		Subject:        userID,
		SourceID:       req.SourceID,
		DestID:         req.DestID,
		Amount:         req.Amount,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, TransferResponse{
		Transaction:  result.Out,
		BalanceAfter: result.Out.BalanceAfter.StringFixed(domain.MoneyScale),
	})
}

func (h *TransactionHandler) Balance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accountID := c.Param("accountId")
	balance, err := h.coordinator.Balance(c.Request.Context(), userID, accountID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		AccountID: accountID,
		Balance:   balance.StringFixed(domain.MoneyScale),
	})
}

func (h *TransactionHandler) History(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	query, err := parseHistoryQuery(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	entries, err := h.coordinator.History(c.Request.Context(), userID, c.Param("accountId"), query)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if entries == nil {
		entries = []domain.JournalEntry{}
	}
	c.JSON(http.StatusOK, HistoryResponse{Transactions: entries})
}

func parseHistoryQuery(c *gin.Context) (journal.Query, error) {
	var q journal.Query
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, err
		}
		if limit < 0 {
			return q, errors.New("limit must not be negative")
		}
		q.Limit = limit
	}
	for _, p := range []struct {
		raw string
		dst *time.Time
	}{
		{c.Query("before"), &q.Before},
		{c.Query("from"), &q.From},
		{c.Query("to"), &q.To},
	} {
		if p.raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, p.raw)
		if err != nil {
			return q, err
		}
		*p.dst = ts
	}
	q.BeforeID = c.Query("before_id")
	return q, nil
}
