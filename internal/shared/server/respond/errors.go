package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard-backend/internal/shared/apperr"
	"dashboard-backend/internal/shared/telemetry"
)

// ErrorBody is the error payload. Success is always false so clients can
// branch on the same field the success bodies carry.
type ErrorBody struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	telemetry.Error("http.error", map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	})

	c.AbortWithStatusJSON(status, ErrorBody{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// FromError maps err onto the HTTP surface. Validation errors return 400 with
// their short message; everything else returns 500 with generic, and the cause
// is only logged.
func FromError(c *gin.Context, err error, generic string) {
	if err == nil {
		return
	}
	kind := apperr.KindOf(err)
	if kind == apperr.KindValidation {
		msg := err.Error()
		if e, ok := apperr.As(err); ok && e.Message != "" {
			msg = e.Message
		}
		Error(c, http.StatusBadRequest, string(kind), msg, nil)
		return
	}

	fields := map[string]any{"error": err.Error()}
	if e, ok := apperr.As(err); ok {
		fields = e.ToMap()
	}
	fields["request_id"] = c.GetString("requestId")
	telemetry.Error("request.failed", fields)
	Error(c, http.StatusInternalServerError, "internal", generic, nil)
}
