package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/recoverykit/logger"
)

// RequestLogger logs every request except the liveness and health checks, at a level
// that follows the status code.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	log = logger.OrGlobal(log)
	return func(c *gin.Context) {
		if isHealthCheck(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		fields := logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			logger.FieldStatus, status,
			logger.FieldDuration, latency.Milliseconds(),
			logger.FieldRequestID, c.GetString(ContextKeyRequestID),
		)
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}

		switch {
		case status >= 500:
			log.Error("request completed", fields)
		case status >= 400:
			log.Warn("request completed", fields)
		default:
			log.Debug("request completed", fields)
		}
	}
}

func isHealthCheck(path string) bool {
	return path == "/health" || path == "/alive"
}
