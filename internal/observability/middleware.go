package observability

import (
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "feedbackapp/internal/utils"
)

// GinMiddlewareWithErrorHandling creates OpenTelemetry middleware with automatic
// error attribute addition for failed requests
func GinMiddlewareWithErrorHandling(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		otelgin.Middleware(serviceName)(c)

		c.Next()

		// After the request is processed, annotate the span for failures
		if span := trace.SpanFromContext(c.Request.Context()); span != nil {
			statusCode := c.Writer.Status()
			if statusCode < 400 {
				return
			}

			severity := string(contextutils.SeverityWarn)
			errorMsg := "client error"
			if statusCode >= 500 {
				severity = string(contextutils.SeverityError)
				errorMsg = "server error"
			}

			if len(c.Errors) > 0 {
				for _, ginErr := range c.Errors {
					var appErr *contextutils.AppError
					if errors.As(ginErr.Err, &appErr) {
						errorMsg = appErr.Message
						severity = string(contextutils.GetErrorSeverity(ginErr.Err))
						break
					}
					errorMsg = ginErr.Error()
				}
			}

			span.RecordError(errors.New(errorMsg), trace.WithStackTrace(true))
			span.SetStatus(codes.Error, errorMsg)

			span.SetAttributes(
				attribute.Int("http.status_code", statusCode),
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.path", c.Request.URL.Path),
				attribute.String("error.handler", c.HandlerName()),
				attribute.String("error.severity", severity),
			)

			// Add user context if available
			session := sessions.Default(c)
			if uid, ok := session.Get("user_uid").(string); ok && uid != "" {
				span.SetAttributes(attribute.String("error.user_uid", uid))
			}
		}
	}
}
