package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MakeHealthHandler builds GET /api/v1/transactions/health (spec ss4.5): a
// liveness probe that also verifies the store connection is reachable.
func MakeHealthHandler(container HandlerDependencies) gin.HandlerFunc {
	store := container.GetStore()

	return func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
