package web

import (
	"net/http"

	"procurement-engine/internal/app"
	"procurement-engine/internal/core"
)

// searchReorderPoints handles GET /api/reorder-points?status=&stock_id=.
func (h *Handler) searchReorderPoints(w http.ResponseWriter, r *http.Request) {
	var filter core.ReorderPointFilter
	switch status := core.ReorderStatus(r.URL.Query().Get("status")); status {
	case "", core.ReorderAdequate, core.ReorderInadequate:
		filter.Status = status
	default:
		h.writeServiceError(w, r, &core.ValidationError{Field: "status", Message: "must be adequate or inadequate"})
		return
	}
	stockID, err := queryInt(r, "stock_id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	filter.StockID = stockID

	points, err := h.svc.SearchReorderPoints(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, points)
}

func (h *Handler) reorderPointTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.svc.ReorderPointTotals(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, totals)
}

// registerReorderPoint handles POST /api/reorder-points.
func (h *Handler) registerReorderPoint(w http.ResponseWriter, r *http.Request) {
	var req app.RegisterReorderPointRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rp, err := h.svc.RegisterReorderPoint(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rp)
}

// syncReorderPoints handles POST /api/reorder-points/sync.
func (h *Handler) syncReorderPoints(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SyncReorderPoints(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// searchAlerts handles GET /api/alerts?level=.
func (h *Handler) searchAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.SearchAlerts(r.Context(), r.URL.Query().Get("level"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, alerts)
}

func (h *Handler) alertTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.svc.AlertTotals(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, totals)
}
