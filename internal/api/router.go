package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"parking-status-backend/config"
	"parking-status-backend/internal/ingest"
	"parking-status-backend/internal/mw"
	"parking-status-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, s store.Store, ingestSvc *ingest.Service, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, ingestSvc, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 10*time.Minute)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Device-facing ingestion surface. Never cached.
		iot := api.Group("/iot")
		{
			iot.POST("/telemetry", handler.Telemetry)
			iot.POST("/boot", handler.Boot)
			iot.POST("/connect", handler.Connect)
			iot.GET("/ping", handler.Ping)
		}

		// Query surface consumed by the UI.
		api.GET("/slots", caching, handler.GetSlots)
		api.PUT("/slots/:label/threshold", handler.UpdateThreshold)
		api.GET("/telemetry", handler.GetRecentEvents)
		api.GET("/stats/occupancy", caching, handler.GetOccupancyStats)
		api.GET("/stats/hourly", caching, handler.GetHourlyOccupancy)
		api.GET("/devices", handler.GetDevices)
		api.POST("/devices", handler.CreateDevice)

		// Browser push subscriptions.
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
