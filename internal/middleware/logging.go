package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/metrics"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// RequestLogger logs each request and records its latency.
func RequestLogger() gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int64("durationMs", elapsed.Milliseconds()),
			zap.String("remoteAddr", c.ClientIP()),
		}
		if actor, ok := ActorFromContext(c); ok {
			fields = append(fields, zap.String("actor", string(actor.Role())+":"+actor.ActorID()))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if status >= 500 {
			log.Error("Request completed", fields...)
			return
		}
		log.Info("Request completed", fields...)
	}
}
