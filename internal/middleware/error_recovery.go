package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"feedbackapp/internal/observability"
)

// ErrorRecoveryMiddleware converts panics into structured 500 responses so
// a handler bug never takes the process down or leaks a stack trace.
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "Panic recovered in handler", nil, map[string]interface{}{
					"panic":  r,
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
					"code":  "INTERNAL_SERVER_ERROR",
				})
			}
		}()
		c.Next()
	}
}
