package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"docarchive-backend/internal/shared/server/respond"
	"docarchive-backend/internal/shared/telemetry"
)

// Recovery recovers from panics and returns the standard failure envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				reqID := RequestIDFromContext(c)
				telemetry.Error("panic", map[string]any{
					"request_id": reqID,
					"error":      rec,
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				respond.Fail(c, http.StatusInternalServerError, "Unexpected server error")
			}
		}()
		c.Next()
	}
}
