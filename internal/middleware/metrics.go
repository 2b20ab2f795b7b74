package middleware

import (
	"time"

	"frida-keeper/internal/logger"
	"frida-keeper/services"

	"github.com/gin-gonic/gin"
)

/**
 * Request accounting middleware
 * @description
 * - Counts requests and failed requests (status >= 400) per route
 * - Records handling time for the duration histogram
 * - Route templates are used as labels so path parameters do not explode cardinality
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		services.IncrementRequestCount(route)
		services.RecordRequestDuration(route, time.Since(start).Seconds())
		if status := c.Writer.Status(); status >= 400 {
			services.IncrementErrorCount(route)
			logger.Debugf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status)
		}
	}
}
