package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"portlink-backend/config"
	"portlink-backend/internal/mw"
	"portlink-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()
	handler := NewHandler(s)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)

	cacheStore := cache.New(cfg.CacheTTL, 10*time.Minute)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Invalidate(cacheStore))

	projects := api.Group("/projects/:pid")
	{
		projects.POST("/devices", handler.CreateDevice)
		projects.GET("/devices/:did/ports", caching, handler.ListDevicePorts)

		projects.GET("/candidates", caching, handler.FindCandidates)

		projects.GET("/links", caching, handler.ListLinks)
		projects.POST("/links", handler.CreateLink)
		projects.DELETE("/links/:lid", handler.DeleteLink)

		projects.PATCH("/ports/:port_id/active", handler.SetPortActive)

		projects.GET("/cables", caching, handler.ListCables)
		projects.GET("/cables/selection", caching, handler.FetchCables)
		projects.POST("/cables/printed", handler.MarkPrinted)
	}

	devices := api.Group("/devices/:did")
	{
		devices.POST("/ports/reconcile", handler.ReconcilePorts)
		devices.POST("/ports/:port_id/children", handler.CreateChildPort)
		devices.PUT("/template", handler.SwitchTemplate)
		devices.DELETE("", handler.DeleteDevice)
	}

	return r
}
