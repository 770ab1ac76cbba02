package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"dock-stats-backend/config"
	"dock-stats-backend/internal/daywindow"
	"dock-stats-backend/internal/ledger"
	"dock-stats-backend/internal/mw"
	"dock-stats-backend/internal/stats"
	"dock-stats-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, l *ledger.Service) *gin.Engine {
	r := gin.Default()

	rule := daywindow.FromConfig(&cfg.Business)
	agg := stats.New(cfg.Business.Location)
	handler := NewHandler(s, l, rule, agg)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/records", handler.CreateRecord)
		api.GET("/records", handler.ListRecords)
		api.GET("/records/duplicate", handler.CheckDuplicate)
		api.PUT("/records/:id", handler.UpdateRecord)
		api.DELETE("/records/:id", handler.DeleteRecord)

		api.GET("/stats", caching, handler.GetStats)
		api.GET("/stats/hourly", caching, handler.GetHourly)
		api.GET("/stats/trend", caching, handler.GetDailyTrend)
		api.GET("/stats/weekly", caching, handler.GetWeekComparison)

		api.POST("/sorting", handler.CreateSorting)
		api.GET("/sorting", handler.ListSorting)
		api.GET("/sorting/hourly", handler.SortingHourly)
		api.DELETE("/sorting/:id", handler.DeleteSorting)

		api.PUT("/forecast", handler.UpsertForecast)
		api.GET("/forecast/trend", handler.GetForecastTrend)

		api.GET("/export", handler.ExportReport)
		api.GET("/logs", handler.ListOperationLogs)
	}

	return r
}
