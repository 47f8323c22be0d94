package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pastebin/pastebin/pkg/metrics"
)

// RequestMetrics counts handled requests by method, matched route and status.
// Unmatched paths are folded into a single "unmatched" route label to keep
// cardinality bounded.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
