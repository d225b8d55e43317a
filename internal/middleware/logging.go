package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crestbank/corebank/pkg/logger"
)

// LoggingMiddleware emits one structured log line per request.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Log.Info("request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("clientIp", c.ClientIP()),
		)
	}
}
