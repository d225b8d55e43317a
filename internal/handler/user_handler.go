package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/middleware"
	"github.com/crestbank/corebank/internal/user"
)

type UserRegistrar interface {
	Register(ctx context.Context, req user.RegisterRequest) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
}

type UserHandler struct {
	users UserRegistrar
}

func NewUserHandler(users UserRegistrar) *UserHandler {
	return &UserHandler{users: users}
}

type RegisterUserRequest struct {
	Username    string `json:"username" validate:"required,alphanum,min=3,max=30"`
	FullName    string `json:"fullName" validate:"required,min=1,max=100"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,e164"`
	PIN         string `json:"pin" validate:"required,len=4,numeric"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	created, err := h.users.Register(c.Request.Context(), user.RegisterRequest{
		Username:    req.Username,
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		PIN:         req.PIN,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
