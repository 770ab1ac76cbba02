package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"dock-stats-backend/internal/daywindow"
	"dock-stats-backend/internal/ledger"
	"dock-stats-backend/internal/stats"
	"dock-stats-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store  store.Store
	ledger *ledger.Service
	rule   daywindow.Rule
	agg    *stats.Aggregator
	now    func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, l *ledger.Service, rule daywindow.Rule, agg *stats.Aggregator) *Handler {
	return &Handler{
		store:  s,
		ledger: l,
		rule:   rule,
		agg:    agg,
		now:    time.Now,
	}
}

// windowForQuery resolves the ?date= query parameter (default: the current
// business day) into the day's UTC window plus the reference date itself.
func (h *Handler) windowForQuery(c *gin.Context) (start, end, ref time.Time, ok bool) {
	now := h.now()

	if raw := c.Query("date"); raw != "" {
		var err error
		ref, err = h.rule.ParseDate(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
			return
		}
	} else {
		ref = h.rule.BusinessDate(now)
	}

	start, end, err := h.rule.Window(ref, now)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	return start, end, ref, true
}

// abortWithError maps domain errors onto HTTP statuses: validation 400,
// missing records 404, write races 409, everything else is treated as a
// transient store failure the client may retry.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, daywindow.ErrFutureDate),
		errors.Is(err, ledger.ErrDockRequired),
		errors.Is(err, ledger.ErrVehicleTypeRequired):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable"})
	}
}

// flexInt accepts a JSON number, a numeric string, or garbage. Anything
// that does not parse as an integer is treated as absent, so classification
// defaults apply instead of an ingest failure.
type flexInt struct {
	value *int
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		f.value = nil
		return nil
	}
	var num json.Number = json.Number(s)
	n, err := num.Int64()
	if err != nil {
		// Tolerate floats by truncating.
		if fl, ferr := num.Float64(); ferr == nil {
			v := int(fl)
			f.value = &v
			return nil
		}
		f.value = nil
		return nil
	}
	v := int(n)
	f.value = &v
	return nil
}

func (f flexInt) MarshalJSON() ([]byte, error) {
	if f.value == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(*f.value)), nil
}
