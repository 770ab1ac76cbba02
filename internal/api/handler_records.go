package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dock-stats-backend/internal/classify"
	"dock-stats-backend/internal/ledger"
	"dock-stats-backend/internal/model"
	"dock-stats-backend/internal/stats"
)

// arrivalPayload is the inbound JSON for creating or editing an arrival.
// Numeric fields tolerate strings and garbage; parsing happens once, here.
type arrivalPayload struct {
	DockNumber   flexInt `json:"dock_number"`
	VehicleType  string  `json:"vehicle_type"`
	VehiclePlate string  `json:"vehicle_plate"`
	Unit         string  `json:"unit"`
	LoadAmount   flexInt `json:"load_amount"`
	Pieces       flexInt `json:"pieces"`
	TimeBucket   string  `json:"time_bucket"`
	Remark       string  `json:"remark"`
}

// CreateRecord handles POST /api/records: the ingest path of the occupancy
// ledger.
func (h *Handler) CreateRecord(c *gin.Context) {
	var payload arrivalPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	rec, warning, err := h.ledger.RecordArrival(c.Request.Context(), ledger.Proposed{
		DockNumber:   payload.DockNumber.value,
		VehicleType:  payload.VehicleType,
		VehiclePlate: payload.VehiclePlate,
		Unit:         payload.Unit,
		LoadAmount:   payload.LoadAmount.value,
		Pieces:       payload.Pieces.value,
		TimeBucket:   payload.TimeBucket,
		Remark:       payload.Remark,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	resp := gin.H{"id": rec.ID}
	if warning != nil {
		resp["warning"] = warning
	}
	c.JSON(http.StatusCreated, resp)
}

// ListRecords handles GET /api/records?date=. G-plate 53ft rows are left
// out of the listing, matching the board the floor staff work from.
func (h *Handler) ListRecords(c *gin.Context) {
	start, end, ref, ok := h.windowForQuery(c)
	if !ok {
		return
	}

	records, err := h.store.ScanByCreatedAt(c.Request.Context(), start, end)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	visible := make([]model.ArrivalRecord, 0, len(records))
	for i := range records {
		if stats.ExcludedFromLoad(&records[i]) {
			continue
		}
		visible = append(visible, records[i])
	}
	c.JSON(http.StatusOK, gin.H{"date": ref.Format("2006-01-02"), "records": visible})
}

// UpdateRecord handles PUT /api/records/:id. The 53ft load/piece coupling
// is re-applied on edit; created_at and duration stay untouched. Every
// successful edit is recorded in the operation log with before and after
// snapshots.
func (h *Handler) UpdateRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
		return
	}

	var payload arrivalPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	ctx := c.Request.Context()
	before, err := h.store.GetArrival(ctx, id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	res := classify.Apply(payload.VehicleType, payload.Unit, payload.LoadAmount.value, payload.Pieces.value)

	after := *before
	after.DockNumber = payload.DockNumber.value
	after.VehicleType = payload.VehicleType
	after.VehiclePlate = payload.VehiclePlate
	after.Unit = res.Unit
	after.LoadAmount = res.LoadAmount
	after.Pieces = res.Pieces
	after.TimeBucket = payload.TimeBucket
	after.Remark = payload.Remark

	if err := h.store.UpdateArrival(ctx, &after); err != nil {
		h.abortWithError(c, err)
		return
	}
	h.logOperation(ctx, model.OperationEdit, id, before, &after)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteRecord handles DELETE /api/records/:id, the administrative
// override. It does not rewrite neighbouring durations.
func (h *Handler) DeleteRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
		return
	}

	ctx := c.Request.Context()
	before, err := h.store.GetArrival(ctx, id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	if err := h.store.DeleteArrival(ctx, id); err != nil {
		h.abortWithError(c, err)
		return
	}
	h.logOperation(ctx, model.OperationDelete, id, before, nil)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CheckDuplicate handles GET /api/records/duplicate?dock=.
func (h *Handler) CheckDuplicate(c *gin.Context) {
	dock, err := strconv.Atoi(c.Query("dock"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid dock number"})
		return
	}

	warning, err := h.ledger.CheckDuplicate(c.Request.Context(), dock)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if warning == nil {
		c.JSON(http.StatusOK, gin.H{"is_duplicate": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_duplicate": true, "warning": warning})
}

// ListOperationLogs handles GET /api/logs.
func (h *Handler) ListOperationLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.store.ListOperationLogs(c.Request.Context(), limit)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// logOperation appends an audit entry with JSON snapshots of the persisted
// columns. Audit failures are logged, not surfaced: the data change itself
// already succeeded.
func (h *Handler) logOperation(ctx context.Context, op string, id int64, before, after *model.ArrivalRecord) {
	entry := &model.OperationLog{
		OperationType: op,
		TableName:     "arrival_records",
		RecordID:      id,
		CreatedAt:     h.now().UTC(),
	}
	if before != nil {
		if data, err := json.Marshal(before); err == nil {
			entry.OldData = string(data)
		}
	}
	if after != nil {
		if data, err := json.Marshal(after); err == nil {
			entry.NewData = string(data)
		}
	}
	if err := h.store.AppendOperationLog(ctx, entry); err != nil {
		log.Printf("failed to append operation log for record %d: %v", id, err)
	}
}
