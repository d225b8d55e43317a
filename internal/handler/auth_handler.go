package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crestbank/corebank/internal/auth"
	"github.com/crestbank/corebank/internal/middleware"
	"github.com/crestbank/corebank/internal/ratelimit"
)

// AuthService is the slice of the auth package the handler needs.
type AuthService interface {
	Login(ctx context.Context, username, secret string) (*auth.Session, error)
	Logout(ctx context.Context, subject string) error
	RequestReset(ctx context.Context, email string) (string, error)
	ConfirmReset(ctx context.Context, token, newSecret string) error
}

// RateLimiter throttles unauthenticated endpoints by client address.
type RateLimiter interface {
	Check(ctx context.Context, key string, class ratelimit.Class) error
}

type AuthHandler struct {
	service AuthService
	limiter RateLimiter
}

func NewAuthHandler(service AuthService, limiter RateLimiter) *AuthHandler {
	return &AuthHandler{service: service, limiter: limiter}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=30"`
	PIN      string `json:"pin" validate:"required,len=4,numeric"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type ResetRequestBody struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetConfirmBody struct {
	Token  string `json:"token" validate:"required"`
	NewPIN string `json:"new_pin" validate:"required,len=4,numeric"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	if err := h.limiter.Check(c.Request.Context(), c.ClientIP(), ratelimit.ClassLogin); err != nil {
		respondDomainError(c, err)
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	session, err := h.service.Login(c.Request.Context(), req.Username, req.PIN)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: session.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(session.ExpiresIn.Seconds()),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) RequestReset(c *gin.Context) {
	if err := h.limiter.Check(c.Request.Context(), c.ClientIP(), ratelimit.ClassReset); err != nil {
		respondDomainError(c, err)
		return
	}

	var req ResetRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	token, err := h.service.RequestReset(c.Request.Context(), req.Email)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset_token": token})
}

func (h *AuthHandler) ConfirmReset(c *gin.Context) {
	if err := h.limiter.Check(c.Request.Context(), c.ClientIP(), ratelimit.ClassReset); err != nil {
		respondDomainError(c, err)
		return
	}

	var req ResetConfirmBody
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	if err := h.service.ConfirmReset(c.Request.Context(), req.Token, req.NewPIN); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "PIN has been reset"})
}
