package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/noteharvest/api/handler"
	"github.com/use-agent/noteharvest/api/middleware"
	"github.com/use-agent/noteharvest/config"
	"github.com/use-agent/noteharvest/session"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(runner *session.Runner, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(runner.Session(), startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.StartScrape(runner))
	protected.GET("/scrape/progress", handler.Progress(runner.Session()))

	return r
}
