package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/hearthquest/metrics"
)

// Metrics counts requests by matched route pattern and status code.
// Unmatched paths share the "unmatched" route label.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
