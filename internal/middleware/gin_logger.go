package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/photofeed/backend/internal/logger"
	"github.com/photofeed/backend/internal/metrics"
)

// GinLoggerMiddleware logs HTTP requests with structured fields and records
// the request metrics. It replaces gin.Logger.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		clientIP := c.ClientIP()

		c.Next()

		statusCode := c.Writer.Status()
		latency := time.Since(startTime)

		m := metrics.Get()
		m.HTTPRequestsTotal.WithLabelValues(method, path, statusText(statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(latency.Seconds())

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("client_ip", clientIP),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
		}
		if requestID := c.GetString("request_id"); requestID != "" {
			fields = append(fields, logger.WithRequestID(requestID))
		}

		switch {
		case statusCode >= 500:
			logger.Log.Error("request failed", fields...)
		case statusCode >= 400:
			logger.Log.Warn("request rejected", fields...)
		default:
			logger.Log.Info("request", fields...)
		}
	}
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
