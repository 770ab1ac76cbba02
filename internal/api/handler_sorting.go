package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dock-stats-backend/internal/model"
	"dock-stats-backend/internal/stats"
)

type sortingPayload struct {
	SortingDate string  `json:"sorting_date" binding:"required"`
	TimeBucket  string  `json:"time_bucket"`
	Pieces      flexInt `json:"pieces"`
	Remark      string  `json:"remark"`
}

// CreateSorting handles POST /api/sorting.
func (h *Handler) CreateSorting(c *gin.Context) {
	var payload sortingPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "sorting_date is required"})
		return
	}
	if _, err := h.rule.ParseDate(payload.SortingDate); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid sorting_date, use YYYY-MM-DD"})
		return
	}

	pieces := 0
	if payload.Pieces.value != nil {
		pieces = *payload.Pieces.value
	}
	rec := &model.SortingRecord{
		SortingDate: payload.SortingDate,
		TimeBucket:  payload.TimeBucket,
		Pieces:      pieces,
		Remark:      payload.Remark,
		CreatedAt:   h.now().UTC(),
	}
	id, err := h.store.CreateSorting(c.Request.Context(), rec)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListSorting handles GET /api/sorting?date=.
func (h *Handler) ListSorting(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.rule.BusinessDate(h.now()).Format("2006-01-02")
	} else if _, err := h.rule.ParseDate(date); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
		return
	}

	records, err := h.store.ListSortingByDate(c.Request.Context(), date)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "records": records})
}

// SortingHourly handles GET /api/sorting/hourly?date=: the day's sorted
// pieces grouped by time bucket.
func (h *Handler) SortingHourly(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.rule.BusinessDate(h.now()).Format("2006-01-02")
	} else if _, err := h.rule.ParseDate(date); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
		return
	}

	records, err := h.store.ListSortingByDate(c.Request.Context(), date)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "rows": stats.SortingHourly(records)})
}

// DeleteSorting handles DELETE /api/sorting/:id.
func (h *Handler) DeleteSorting(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
		return
	}
	if err := h.store.DeleteSorting(c.Request.Context(), id); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
