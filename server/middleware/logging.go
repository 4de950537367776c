package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/injector/logger"
)

var quietPaths = map[string]bool{
	"/health": true,
	"/info":   true,
	"/livez":  true,
	"/readyz": true,
}

// RequestLogger logs each request once it completes. Server errors log at
// error level, client errors at warn, the rest at debug. Health check paths are
// skipped.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if quietPaths[c.Request.URL.Path] {
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
			"client", c.ClientIP(),
		)
		if id := GetRequestID(c); id != "" {
			fields[logger.FieldRequestID] = id
		}
		if id := ScopeID(c); id != "" {
			fields[logger.FieldScopeID] = id
		}
		if len(c.Errors) > 0 {
			fields[logger.FieldError] = c.Errors.String()
		}

		switch {
		case status >= 500:
			log.Error("Request completed", fields)
		case status >= 400:
			log.Warn("Request completed", fields)
		default:
			log.Debug("Request completed", fields)
		}
	}
}
