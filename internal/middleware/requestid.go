package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adrplatform/abend-tracker/internal/observability"
)

const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request an id, reusing the caller's X-Request-ID
// when one is supplied. The id is echoed on the response and stored in the
// request context for downstream loggers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := observability.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}
