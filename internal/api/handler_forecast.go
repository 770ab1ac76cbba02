package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dock-stats-backend/internal/daywindow"
	"dock-stats-backend/internal/model"
	"dock-stats-backend/internal/stats"
)

type forecastPayload struct {
	ForecastDate string  `json:"forecast_date" binding:"required"`
	Amount       flexInt `json:"amount"`
}

// UpsertForecast handles PUT /api/forecast: one expected piece count per
// calendar date, overwritten on re-entry.
func (h *Handler) UpsertForecast(c *gin.Context) {
	var payload forecastPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "forecast_date is required"})
		return
	}
	if _, err := h.rule.ParseDate(payload.ForecastDate); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid forecast_date, use YYYY-MM-DD"})
		return
	}
	amount := 0
	if payload.Amount.value != nil {
		amount = *payload.Amount.value
	}

	now := h.now().UTC()
	err := h.store.UpsertForecast(c.Request.Context(), &model.PickupForecast{
		ForecastDate: payload.ForecastDate,
		Amount:       amount,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// trendPoint compares one date's forecast against the pieces actually
// received in that business day.
type trendPoint struct {
	Date              string  `json:"date"`
	Forecast          int     `json:"forecast"`
	Actual            int     `json:"actual"`
	DifferencePercent float64 `json:"difference_percent"`
}

// GetForecastTrend handles GET /api/forecast/trend. Days that have not
// started yet report zero actuals.
func (h *Handler) GetForecastTrend(c *gin.Context) {
	ctx := c.Request.Context()
	forecasts, err := h.store.ListForecasts(ctx)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	now := h.now()
	points := make([]trendPoint, 0, len(forecasts))
	for _, f := range forecasts {
		point := trendPoint{Date: f.ForecastDate, Forecast: f.Amount}

		ref, err := h.rule.ParseDate(f.ForecastDate)
		if err == nil {
			start, end, werr := h.rule.Window(ref, now)
			switch {
			case errors.Is(werr, daywindow.ErrFutureDate):
				// Nothing arrived yet; keep zero actuals.
			case werr != nil:
				h.abortWithError(c, werr)
				return
			default:
				records, serr := h.store.ScanByCreatedAt(ctx, start, end)
				if serr != nil {
					h.abortWithError(c, serr)
					return
				}
				for i := range records {
					if stats.ExcludedFromLoad(&records[i]) {
						continue
					}
					point.Actual += records[i].Pieces
				}
			}
		}

		if point.Forecast > 0 {
			point.DifferencePercent = float64(point.Actual-point.Forecast) / float64(point.Forecast) * 100
		}
		points = append(points, point)
	}
	c.JSON(http.StatusOK, points)
}
