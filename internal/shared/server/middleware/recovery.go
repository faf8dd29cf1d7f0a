package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"dashboard-backend/internal/shared/server/respond"
	"dashboard-backend/internal/shared/telemetry"
)

// Recovery turns a panic into the generic 500 body. The file id and document
// type, when a handler got far enough to set them, go into the log line.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if v := c.GetString(FileIDKey); v != "" {
				fields["file_id"] = v
			}
			if v := c.GetString(DocumentTypeKey); v != "" {
				fields["document_type"] = v
			}
			telemetry.Error("http.panic", fields)
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
