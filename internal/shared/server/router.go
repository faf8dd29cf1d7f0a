package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard-backend/internal/services/health"
	"dashboard-backend/internal/shared/metrics"
	"dashboard-backend/internal/shared/server/middleware"
	"dashboard-backend/internal/shared/server/respond"
)

// RouteRegistrar mounts a feature's routes on its group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries what the router needs from bootstrap.
type RouterDeps struct {
	CORSAllowOrigins []string
	OCRPerMinute     int
	Health           *health.Service
	Capture          RouteRegistrar
	Documents        RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	rules := map[string]middleware.RateLimitRule{}
	if deps.OCRPerMinute > 0 {
		rules["OCR"] = middleware.PerMinute(deps.OCRPerMinute)
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.CORSAllowOrigins),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rules,
			GroupFor: rateLimitGroup,
		}),
	)

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		ok, checks := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, gin.H{"ok": ok, "checks": checks})
	})
	api.GET("/metrics", metrics.Handler())

	if deps.Capture != nil {
		deps.Capture.RegisterRoutes(api.Group("/capture"))
	}
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(api.Group("/documents"))
	}

	return r
}

// OCR is the expensive path; everything else is unlimited.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/api/capture/ocr" {
		return "OCR"
	}
	return "DEFAULT"
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
