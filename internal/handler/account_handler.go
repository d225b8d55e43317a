package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/middleware"
)

type AccountOpener interface {
	Open(ctx context.Context, userID string, accountType domain.AccountType) (*domain.Account, error)
	List(ctx context.Context, userID string) ([]domain.Account, error)
}

type AccountHandler struct {
	accounts AccountOpener
}

func NewAccountHandler(accounts AccountOpener) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type OpenAccountRequest struct {
	AccountType string `json:"accountType" validate:"required,oneof=SAVINGS CHECKING"`
}

type ListAccountsResponse struct {
	Accounts []domain.Account `json:"accounts"`
}

func (h *AccountHandler) Open(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.accounts.Open(c.Request.Context(), userID, domain.AccountType(req.AccountType))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accounts, err := h.accounts.List(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: accounts})
}
