// Package routes wires the HTTP ingress adapter's endpoints, mirroring the
// teacher's internal/api/routes.RegisterRoutes.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transferengine/internal/httpapi/handlers"
	"transferengine/internal/httpapi/middleware"
)

// RegisterRoutes registers every route spec ss4.5/ss6 names, plus /metrics
// for Prometheus scraping.
func RegisterRoutes(router *gin.Engine, container handlers.HandlerDependencies) {
	router.Use(middleware.RequestLog())
	router.Use(middleware.Prometheus())

	v1 := router.Group("/api/v1")
	v1.POST("/transactions", handlers.MakeTransferHandler(container))
	v1.GET("/transactions/health", handlers.MakeHealthHandler(container))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
