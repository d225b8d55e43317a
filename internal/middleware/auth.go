package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crestbank/corebank/internal/domain"
)

// TokenValidator checks a bearer token and returns the authenticated subject.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// AuthMiddleware authenticates the request and stores the subject under
// "userId" in the gin context. Expired, revoked and malformed tokens all come
// back 401 with a message naming the reason.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			RespondWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		subject, err := tokens.Validate(c.Request.Context(), parts[1])
		if err != nil {
			RespondWithError(c, http.StatusUnauthorized, tokenErrorMessage(err))
			c.Abort()
			return
		}

		c.Set("userId", subject)
		c.Next()
	}
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, domain.ErrRevokedToken):
		return "Token has been revoked"
	default:
		return "Invalid token"
	}
}

func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		return "", false
	}
	return userID.(string), true
}
