package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 response; success envelopes carry their own success field.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// AbortJSON writes payload with status and stops the handler chain. Every
// failure envelope goes through here so aborting stays in one place.
func AbortJSON(c *gin.Context, status int, payload any) {
	c.AbortWithStatusJSON(status, payload)
}
