package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/secrets/pkg/logger"
)

// RequestLogger logs one line per request. Query strings are omitted since
// OAuth callbacks carry authorization codes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infow("request", logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Microsecond),
			"ip":       c.ClientIP(),
		})
	}
}
