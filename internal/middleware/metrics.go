package middleware

import (
	"context"
	"strconv"
	"time"

	awspkg "github.com/counterjob/backend/internal/aws"
	"github.com/gin-gonic/gin"
)

// HTTPMetrics is satisfied by aws.MetricsClient.
type HTTPMetrics interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// Metrics publishes request count, latency and error counters per route.
func Metrics(m HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || !m.IsEnabled() {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		go func(route, method string, status int, dur time.Duration) {
			mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			dims := map[string]string{"Route": route, "Method": method}
			_ = m.RecordCount(mctx, awspkg.MetricHTTPRequests, dims)
			_ = m.RecordLatency(mctx, awspkg.MetricHTTPLatency, dur, dims)
			switch {
			case status >= 500:
				dims["Status"] = strconv.Itoa(status)
				_ = m.RecordCount(mctx, awspkg.MetricHTTPErrors, dims)
				_ = m.RecordCount(mctx, awspkg.MetricHTTP5xx, dims)
			case status >= 400:
				dims["Status"] = strconv.Itoa(status)
				_ = m.RecordCount(mctx, awspkg.MetricHTTPErrors, dims)
				_ = m.RecordCount(mctx, awspkg.MetricHTTP4xx, dims)
			}
		}(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
