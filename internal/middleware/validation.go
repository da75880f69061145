package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"feedbackapp/internal/observability"
	contextutils "feedbackapp/internal/utils"
)

// Request body schemas keyed by "METHOD path". Parameterized segments use
// the Gin placeholder form.
var requestSchemas = map[string]string{
	"POST /v1/auth/login": `{
		"type": "object",
		"required": ["email", "password"],
		"properties": {
			"email":    {"type": "string", "minLength": 1},
			"password": {"type": "string", "minLength": 1}
		},
		"additionalProperties": false
	}`,
	"POST /v1/auth/register": `{
		"type": "object",
		"required": ["name", "email", "password"],
		"properties": {
			"name":     {"type": "string", "minLength": 1},
			"email":    {"type": "string", "minLength": 1},
			"password": {"type": "string", "minLength": 6}
		},
		"additionalProperties": false
	}`,
	"POST /v1/feedbacks": `{
		"type": "object",
		"required": ["rating", "comment"],
		"properties": {
			"rating":  {"type": "integer", "minimum": 1, "maximum": 5},
			"comment": {"type": "string"}
		},
		"additionalProperties": false
	}`,
	"POST /v1/admin/feedbacks/:id/respond": `{
		"type": "object",
		"required": ["text"],
		"properties": {
			"text": {"type": "string", "minLength": 1}
		},
		"additionalProperties": false
	}`,
}

var compiledSchemas map[string]*gojsonschema.Schema

func init() {
	compiledSchemas = make(map[string]*gojsonschema.Schema, len(requestSchemas))
	for key, raw := range requestSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic("invalid embedded request schema for " + key + ": " + err.Error())
		}
		compiledSchemas[key] = schema
	}
}

// RequestValidationMiddleware validates JSON request bodies against the
// embedded schemas. Routes without a schema pass through untouched; the
// body is restored for the handler either way.
func RequestValidationMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		schema, ok := compiledSchemas[schemaKey(c)]
		if !ok || c.Request.Body == nil {
			c.Next()
			return
		}

		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "request_validation")
		defer span.End()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Failed to read request body",
				"code":  "INVALID_INPUT",
			})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Request body is not valid JSON",
				"code":  "INVALID_INPUT",
			})
			c.Abort()
			return
		}

		if !result.Valid() {
			details := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				details = append(details, desc.String())
			}
			logger.Warn(ctx, "Request validation failed", map[string]interface{}{
				"method":  c.Request.Method,
				"path":    c.Request.URL.Path,
				"details": details,
			})
			resp := contextutils.ErrValidationFailed.ToJSON()
			resp["details"] = details
			c.JSON(http.StatusBadRequest, resp)
			c.Abort()
			return
		}

		c.Next()
	}
}

// schemaKey rebuilds the route key from the matched route so parameterized
// paths hit the right schema.
func schemaKey(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return strings.ToUpper(c.Request.Method) + " " + path
}
