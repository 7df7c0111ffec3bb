package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"transferengine/internal/pkg/logging"
)

// RequestLog logs one line per request at completion, the same fields the
// teacher's middleware.Metrics records plus status, in this engine's
// structured logging.Logger instead of a separate in-memory metrics list.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		logging.Info("http request", map[string]interface{}{
			"method":   c.Request.Method,
			"route":    route,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		})
	}
}
