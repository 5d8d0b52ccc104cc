package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "knowledge-backend/internal/auth"
	"knowledge-backend/internal/chat"
	"knowledge-backend/internal/documents"
	"knowledge-backend/internal/shared/config"
	"knowledge-backend/internal/shared/metrics"
	"knowledge-backend/internal/shared/server/middleware"
	"knowledge-backend/internal/shared/server/respond"
	"knowledge-backend/internal/services/health"
)

// RouterDeps carries the handlers the router wires up. Construction of the
// underlying services happens in bootstrap; the router only attaches them.
type RouterDeps struct {
	Config           config.Config
	DocumentsHandler *documents.Handler
	ChatHandler      *chat.Handler
	GoogleAuth       *googleauth.GoogleService
	Health           *health.Service
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
		middleware.RateLimit(rateLimitConfig()),
		middleware.Auth(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, deps.Health.Status())
	})
	registerMeRoutes(api)

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.RegisterRoutes(api)
	}

	return r
}

// rateLimitConfig keeps message polling cheaper to allow than mutations.
func rateLimitConfig() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/chat/sessions/:id/messages" {
				return "READ_MESSAGES"
			}
			return "DEFAULT"
		},
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT":       {Rate: 5, Burst: 20},
			"READ_MESSAGES": {Rate: 20, Burst: 60},
		},
	}
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
