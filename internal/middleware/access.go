package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID   = "X-Request-ID"
	ContextAccessKey  = "access_fields"
	ContextRequestKey = "request_id"
)

// AccessLogMiddleware tags every request with an id and writes one log line
// once the handler chain has finished.
func AccessLogMiddleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Header(HeaderRequestID, reqID)
		c.Set(ContextRequestKey, reqID)

		// handlers may add business fields (name, currency) to this map
		fields := make(map[string]any)
		c.Set(ContextAccessKey, fields)

		c.Next()

		args := []any{
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if caller, ok := CallerFrom(c); ok {
			args = append(args, "caller", caller.Hex())
		}
		for k, v := range fields {
			args = append(args, k, v)
		}
		log.Info("request", args...)
	}
}

// AddAccessContext lets handlers attach fields to the request's access log line.
func AddAccessContext(c *gin.Context, key string, value any) {
	if val, exists := c.Get(ContextAccessKey); exists {
		if fields, ok := val.(map[string]any); ok {
			fields[key] = value
		}
	}
}
