package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStats handles GET /api/stats?date=: the business-day snapshot.
func (h *Handler) GetStats(c *gin.Context) {
	start, end, ref, ok := h.windowForQuery(c)
	if !ok {
		return
	}

	records, err := h.store.ScanByCreatedAt(c.Request.Context(), start, end)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	snap := h.agg.Aggregate(records, ref)
	c.JSON(http.StatusOK, gin.H{"date": ref.Format("2006-01-02"), "stats": snap})
}

// GetHourly handles GET /api/stats/hourly?kind=inbound|pallet&date=.
func (h *Handler) GetHourly(c *gin.Context) {
	kind := c.DefaultQuery("kind", "inbound")
	if kind != "inbound" && kind != "pallet" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "kind must be inbound or pallet"})
		return
	}

	start, end, ref, ok := h.windowForQuery(c)
	if !ok {
		return
	}

	records, err := h.store.ScanByCreatedAt(c.Request.Context(), start, end)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	rows := h.agg.HourlyInbound(records)
	if kind == "pallet" {
		rows = h.agg.HourlyPallets(records)
	}
	c.JSON(http.StatusOK, gin.H{"date": ref.Format("2006-01-02"), "kind": kind, "rows": rows})
}

// GetDailyTrend handles GET /api/stats/trend: per-date totals over every
// recorded business day, annotated with weekday and US federal holidays.
func (h *Handler) GetDailyTrend(c *gin.Context) {
	records, err := h.store.ScanAllArrivals(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.agg.DailyTrend(records, h.rule.BusinessDate))
}

// GetWeekComparison handles GET /api/stats/weekly: natural-week totals with
// week-over-week change percentages, up to the week containing today.
func (h *Handler) GetWeekComparison(c *gin.Context) {
	records, err := h.store.ScanAllArrivals(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.agg.WeekComparison(records, h.now()))
}
