package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/store-finder/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records latency and count per route template. Static files share one
// "static" label and unmatched paths share "unknown".
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		labels := []string{c.Request.Method, routeLabel(c.FullPath()), strconv.Itoa(c.Writer.Status())}
		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
	}
}

func routeLabel(fullPath string) string {
	switch {
	case fullPath == "":
		return "unknown"
	case strings.HasPrefix(fullPath, "/public/"), strings.HasPrefix(fullPath, "/uploads/"):
		return "static"
	default:
		return fullPath
	}
}
