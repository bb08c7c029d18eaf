package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/balikbayani/portal-api/internal/service"
)

// probePaths are scraped constantly and would drown out case traffic.
var probePaths = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

// Metrics observes method, route, status, and duration of each request.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if _, skip := probePaths[route]; skip {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
