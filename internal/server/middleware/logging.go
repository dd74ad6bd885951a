package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperlm/internal/logger"
)

// GinRequestLogger returns a Gin middleware for request logging. Requests
// to health-check paths are silently skipped.
func GinRequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isHealthEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}

		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    path,
			"status":  status,
			"latency": latency.String(),
			"client":  c.ClientIP(),
		}
		if id := c.GetString(ContextRequestID); id != "" {
			fields["request_id"] = id
		}
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}

		logByStatus(nil, fields, status)
	}
}

func isHealthEndpoint(path string) bool {
	healthPaths := []string{"/health", "/info", "/metrics"}
	for _, hp := range healthPaths {
		if path == hp || strings.HasSuffix(path, hp) {
			return true
		}
	}
	return false
}

// logByStatus logs request fields at the appropriate level based on HTTP
// status code. If log is nil, the global logger is used.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	logErr := logger.Error
	logWarn := logger.Warn
	logInfo := logger.Info
	if log != nil {
		logErr = log.Error
		logWarn = log.Warn
		logInfo = log.Info
	}

	switch {
	case status >= 500:
		logErr("Request completed", fields)
	case status >= 400:
		logWarn("Request completed", fields)
	default:
		logInfo("Request completed", fields)
	}
}
