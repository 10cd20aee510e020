package middleware

import (
	"strconv"
	"time"

	"github.com/azamatbayne/user-service/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records per-route request counts, latency, and in-flight requests.
// Unmatched routes share one "unknown" label so probes and scans cannot blow
// up label cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()

		c.Next()

		metrics.HTTPRequestsInFlight.Dec()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	}
}
