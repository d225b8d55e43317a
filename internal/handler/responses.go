// Package handler holds the gin HTTP handlers. Handlers bind and validate the
// request, delegate to the services and translate domain errors to statuses;
// no business rules live here.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/middleware"
)

// respondDomainError maps the domain error taxonomy onto HTTP statuses. Rate
// limit responses carry a Retry-After header rounded up to whole seconds.
func respondDomainError(c *gin.Context, err error) {
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		seconds := int64(rle.RetryAfter.Seconds())
		if rle.RetryAfter.Truncate(time.Second) != rle.RetryAfter {
			seconds++
		}
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.FormatInt(seconds, 10))
		middleware.RespondWithError(c, http.StatusTooManyRequests, "Too many requests")
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid amount")
	case errors.Is(err, domain.ErrSameAccount):
		middleware.RespondWithError(c, http.StatusBadRequest, "Source and destination accounts must differ")
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrExpiredToken),
		errors.Is(err, domain.ErrRevokedToken),
		errors.Is(err, domain.ErrMalformedToken):
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		middleware.RespondWithError(c, http.StatusForbidden, "You can only access your own accounts")
	case errors.Is(err, domain.ErrAccountNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
	case errors.Is(err, domain.ErrUserNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
	case errors.Is(err, domain.ErrUsernameTaken):
		middleware.RespondWithError(c, http.StatusConflict, "Username is already taken")
	case errors.Is(err, domain.ErrEmailTaken):
		middleware.RespondWithError(c, http.StatusConflict, "Email is already registered")
	case errors.Is(err, domain.ErrDuplicateRequest):
		middleware.RespondWithError(c, http.StatusConflict, "Idempotency key was already used by a different request")
	case errors.Is(err, domain.ErrInsufficientFunds):
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Insufficient funds")
	case errors.Is(err, domain.ErrAccountNotActive):
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Account is not active")
	case errors.Is(err, domain.ErrInvalidCard):
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Card could not be validated")
	case errors.Is(err, domain.ErrConcurrencyConflict),
		errors.Is(err, domain.ErrStorageUnavailable):
		middleware.RespondWithError(c, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		middleware.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
