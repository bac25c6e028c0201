package httpserver

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	log "collabhub/pkg/logger"
	"collabhub/pkg/metrics"
	"collabhub/pkg/trace"
)

// TraceMiddleware attaches a trace id to the request context. An incoming
// X-Trace-ID header is propagated, otherwise a fresh id is generated.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(trace.Header)
		if id == "" {
			id = trace.NewID()
		}

		ctx := trace.WithContext(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(trace.Header, id)

		c.Next()
	}
}

// RequestLogger logs one line per request with latency and status.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		log.WithTrace(c.Request.Context(), logger).Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
		)

		metrics.RecordHTTPRequestDuration(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()), latency)
	}
}
