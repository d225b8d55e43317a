package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crestbank/corebank/internal/auth"
	"github.com/crestbank/corebank/internal/middleware"
	"github.com/crestbank/corebank/internal/ratelimit"
)

type CardValidator interface {
	ValidateCard(ctx context.Context, number, pin string) (*auth.CardValidation, error)
}

type CardHandler struct {
	cards   CardValidator
	limiter RateLimiter
}

func NewCardHandler(cards CardValidator, limiter RateLimiter) *CardHandler {
	return &CardHandler{cards: cards, limiter: limiter}
}

type ValidateCardRequest struct {
	CardNumber string `json:"card_number" validate:"required,min=12,max=19,numeric"`
	PIN        string `json:"pin" validate:"required,len=4,numeric"`
}

func (h *CardHandler) Validate(c *gin.Context) {
	if err := h.limiter.Check(c.Request.Context(), c.ClientIP(), ratelimit.ClassLogin); err != nil {
		respondDomainError(c, err)
		return
	}

	var req ValidateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	validation, err := h.cards.ValidateCard(c.Request.Context(), req.CardNumber, req.PIN)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, validation)
}
