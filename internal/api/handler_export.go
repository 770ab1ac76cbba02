package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"dock-stats-backend/internal/export"
)

// ExportReport handles GET /api/export?date=&format=xlsx|csv: the daily
// report download.
func (h *Handler) ExportReport(c *gin.Context) {
	format := c.DefaultQuery("format", "xlsx")
	if format != "xlsx" && format != "csv" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "format must be xlsx or csv"})
		return
	}

	start, end, ref, ok := h.windowForQuery(c)
	if !ok {
		return
	}
	date := ref.Format("2006-01-02")

	ctx := c.Request.Context()
	records, err := h.store.ScanByCreatedAt(ctx, start, end)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	if format == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=arrivals_%s.csv", date))
		if err := export.CSV(c.Writer, records, h.rule.Location); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
		}
		return
	}

	sorting, err := h.store.ListSortingByDate(ctx, date)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	workbook, err := export.Workbook(&export.DailyReport{
		Date:     date,
		Location: h.rule.Location,
		Arrivals: records,
		Snapshot: h.agg.Aggregate(records, ref),
		Sorting:  sorting,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to build workbook"})
		return
	}

	buffer, err := workbook.WriteToBuffer()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to write workbook"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=daily_report_%s.xlsx", date))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buffer.Bytes())
}
