package controllers

import (
	"frida-keeper/internal/middleware"
	"frida-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/**
 * Build the daemon router with every controller registered
 * @param {*services.Keeper} keeper - Keeper shared by all controllers
 * @param {bool} metrics - Expose prometheus metrics on /metrics
 * @returns {*gin.Engine} Configured router
 */
func NewRouter(keeper *services.Keeper, metrics bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.MetricsMiddleware())

	NewAPIController(keeper).RegisterRoutes(router)
	NewInstallController(keeper).RegisterRoutes(router)
	NewServiceController(keeper).RegisterRoutes(router)
	NewReleaseController(keeper).RegisterRoutes(router)
	NewDeviceController(keeper).RegisterRoutes(router)
	if metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	return router
}
