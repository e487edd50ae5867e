package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"ticket-queue-monitor/internal/mw"
)

// RouterConfig tunes the middleware.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	// CacheTTL of zero disables the stats response cache.
	CacheTTL time.Duration
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	statsChain := []gin.HandlerFunc{}
	if cfg.CacheTTL > 0 {
		cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
		statsChain = append(statsChain, mw.Cache(cacheStore, cfg.CacheTTL))
	}
	statsChain = append(statsChain, handler.GetStats)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/board", handler.GetBoard)
		api.GET("/stats", statsChain...)
		api.GET("/channels/:name", handler.GetChannel)
		api.POST("/actions/:action", handler.PostAction)

		api.POST("/refresh", handler.PostRefresh)
		api.GET("/refresh", handler.GetRefresh)
		api.PUT("/refresh", handler.PutRefresh)

		api.GET("/health", handler.GetHealth)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return r
}
