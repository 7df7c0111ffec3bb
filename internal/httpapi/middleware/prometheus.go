package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"transferengine/internal/pkg/telemetry"
)

// Prometheus collects the HTTP metrics registered in
// transferengine/internal/pkg/telemetry, mirroring the teacher's
// internal/api/middleware/prometheus.go.
func Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		telemetry.HTTPRequestsInFlight.Inc()
		defer telemetry.HTTPRequestsInFlight.Dec()

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPDuration.WithLabelValues(c.Request.Method, route, status).Observe(duration.Seconds())
		telemetry.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}
