package middleware

import (
	"strconv"
	"time"

	"chain-gateway/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records every request in the collector and reports the
// response time in headers.
func MetricsMiddleware(metricsCollector *metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		metricsCollector.RecordRequest()

		c.Next()

		duration := time.Since(startTime)
		status := c.Writer.Status()

		metricsCollector.RecordRequestComplete(duration, status < 400)

		// unmatched paths share one label to keep cardinality bounded
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsCollector.ObserveHTTP(c.Request.Method, route, strconv.Itoa(status), duration)
	}
}

// ResponseTimeMiddleware adds response time headers. Headers must be set
// before the body is written, so the handler chain is timed up to the first write.
func ResponseTimeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Writer = &timedWriter{ResponseWriter: c.Writer, start: startTime}
		c.Next()
	}
}

type timedWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *timedWriter) stamp() {
	if w.stamped {
		return
	}
	w.stamped = true
	duration := time.Since(w.start)
	w.Header().Set("X-Response-Time", duration.String())
	w.Header().Set("X-Response-Time-Ms", strconv.FormatInt(duration.Milliseconds(), 10))
}

func (w *timedWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) Write(data []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(data)
}

func (w *timedWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}
