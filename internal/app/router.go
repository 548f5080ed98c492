package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"vipps/internal/handler"
	"vipps/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	CheckoutHandler *handler.CheckoutHandler
	WebhookHandler  *handler.WebhookHandler
	FallbackHandler *handler.FallbackHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		vipps := v1.Group("/vipps")
		{
			vipps.POST("/checkout", deps.CheckoutHandler.Start)
			vipps.POST("/callback", deps.WebhookHandler.Callback)
			vipps.GET("/fallback/:orderId", deps.FallbackHandler.Fallback)
		}
	}

	return router
}
