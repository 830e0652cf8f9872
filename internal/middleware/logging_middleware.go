package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samsungplay/CS559-IP3/internal/logging"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader заголовок ответа с trace-ID запроса
const RequestIDHeader = "X-Request-ID"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи.
type RequestLogger struct {
	logger    *logging.Logger
	skipPaths map[string]bool
}

// NewRequestLogger пишет в logger; запросы к skipPaths (например /health) не логируются
func NewRequestLogger(logger *logging.Logger, skipPaths ...string) *RequestLogger {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &RequestLogger{logger: logger, skipPaths: skip}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// trace-id из OpenTelemetry, если otelgin уже создал спан
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set("trace_id", traceID)
		c.Header(RequestIDHeader, traceID)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if rl.skipPaths[path] {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method
		rl.logger.Debug("[HTTP] ▶ %s %s ip=%s trace=%s", method, path, c.ClientIP(), traceID)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		if status >= 500 {
			rl.logger.Error("[HTTP] ◀ %s %s %d %s trace=%s", method, path, status, latency, traceID)
			return
		}
		rl.logger.Info("[HTTP] ◀ %s %s %d %s trace=%s", method, path, status, latency, traceID)
	}
}
