package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/awsclient"
)

// Monitoring publishes per-request CloudWatch metrics. Emission is
// best-effort: a failed put is logged and the response is unaffected.
func Monitoring(emitter *awsclient.MetricsEmitter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if emitter == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		if err := emitter.EmitRequest(c.Request.Context(), route, c.Writer.Status(), time.Since(start)); err != nil {
			logger.Warn("failed to emit request metrics",
				zap.String("route", route),
				zap.Error(err))
		}
	}
}
