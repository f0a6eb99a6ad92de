package router

import (
	"context"
	"time"

	contactapi "phone-sim-demo/backend/contact/api"
	conversationapi "phone-sim-demo/backend/conversation/api"
	"phone-sim-demo/backend/internal/ws"
	loreapi "phone-sim-demo/backend/lore/api"
	"phone-sim-demo/backend/pkg/config"
	"phone-sim-demo/backend/pkg/di"
	"phone-sim-demo/backend/pkg/errors"
	"phone-sim-demo/backend/pkg/health"
	"phone-sim-demo/backend/pkg/logger"
	"phone-sim-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Hub       *ws.Hub
	Health    *health.Checker
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger middleware first so every request is captured
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger)
	engine.Use(rateLimiter.Middleware())

	hub := ws.NewHub(container.Store)
	go hub.Run()

	checker := health.NewChecker(container.Logger, 30*time.Second)
	checker.RegisterCheck("database", func() (health.Status, string, error) {
		if err := config.TestConnection(container.DB); err != nil {
			return health.StatusDown, "database unreachable", err
		}
		return health.StatusUp, "database reachable", nil
	})
	if container.Redis != nil {
		checker.RegisterCheck("redis", redisCheck(container))
	}
	checker.Start()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Hub:       hub,
		Health:    checker,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	r.Engine.GET("/health", r.Health.Handler())
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	contactHandler := contactapi.NewContactHandler(r.Container.Contacts)
	loreHandler := loreapi.NewLoreHandler(r.Container.Lore)
	conversationHandler := conversationapi.NewConversationHandler(
		r.Container.Pipeline,
		r.Container.Conversations,
	)

	v1 := r.Engine.Group("/api/v1")
	if r.Container.JWTService != nil {
		v1.Use(r.Container.JWTService.Middleware())
	}

	contactapi.RegisterContactRoutes(v1, contactHandler)
	loreapi.RegisterLoreRoutes(v1, loreHandler)
	conversationapi.RegisterConversationRoutes(v1, conversationHandler, r.Hub)
}

// Stop shuts down the background parts owned by the router.
func (r *Router) Stop() {
	r.Hub.Stop()
}

func redisCheck(container *di.Container) health.Check {
	return func() (health.Status, string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Redis.Ping(ctx); err != nil {
			return health.StatusDegraded, "redis unreachable, mood persistence degraded", err
		}
		return health.StatusUp, "redis reachable", nil
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
