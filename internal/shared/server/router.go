package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docarchive-backend/internal/documents"
	"docarchive-backend/internal/shared/config"
	"docarchive-backend/internal/shared/metrics"
	"docarchive-backend/internal/shared/server/middleware"
	"docarchive-backend/internal/shared/server/respond"
)

// uploadRule throttles uploads per client: one sustained upload per second
// with a burst of five.
var uploadRule = middleware.RateLimitRule{Rate: 1, Burst: 5}

// RouterDeps carries the handlers the router needs.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
	RateLimiter     *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.DocumentHandler != nil {
		upload := api.Group("")
		upload.Use(middleware.RateLimit(limiter, uploadRule))
		upload.POST("/upload", deps.DocumentHandler.Upload)

		api.GET("/documents", deps.DocumentHandler.List)
		api.GET("/documents/:id/file", deps.DocumentHandler.File)
	}

	r.GET("/metrics", metrics.Handler())

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
