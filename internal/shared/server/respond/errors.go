package respond

import (
	"github.com/gin-gonic/gin"

	"docarchive-backend/internal/shared/telemetry"
)

// FailureResponse is the error envelope every endpoint returns:
// {"success": false, "error": "<message>"}.
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Fail sends the failure envelope and logs the error with request context.
func Fail(c *gin.Context, status int, message string) {
	fields := map[string]any{
		"status":     status,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	telemetry.Error("http.error", fields)

	AbortJSON(c, status, FailureResponse{Success: false, Error: message})
}
