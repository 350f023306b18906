package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sevaportal/portal-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route, keeping raw URLs out of the
// metric label set.
const unmatchedRoute = "unmatched"

// Metrics records the latency and outcome of every request against its route template and
// the tenant project resolved while handling it.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, ProjectKey(c), c.Writer.Status(), time.Since(start))
	}
}
