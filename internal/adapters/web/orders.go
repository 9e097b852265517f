package web

import (
	"context"
	"net/http"

	"procurement-engine/internal/app"
	"procurement-engine/internal/core"
)

// searchOrders handles GET /api/orders?status=&supplier_id=&stock_id=.
func (h *Handler) searchOrders(w http.ResponseWriter, r *http.Request) {
	filter := core.OrderFilter{Status: core.OrderStatus(r.URL.Query().Get("status"))}
	var err error
	if filter.SupplierID, err = queryInt(r, "supplier_id"); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if filter.StockID, err = queryInt(r, "stock_id"); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	orders, err := h.svc.SearchOrders(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, h.svc.GetOrder)
}

// createAutomaticOrder handles POST /api/orders/automatic.
func (h *Handler) createAutomaticOrder(w http.ResponseWriter, r *http.Request) {
	var req app.AutomaticOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.CreateAutomaticOrder(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, res)
}

// changeOrderStatus handles POST /api/orders/{id}/status with body {"status": "..."}.
func (h *Handler) changeOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.svc.ChangeOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) receiveOrder(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, h.svc.ConfirmReceipt)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, h.svc.CancelOrder)
}

func (h *Handler) withOrder(w http.ResponseWriter, r *http.Request, fn func(context.Context, int) (*core.Order, error)) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	order, err := fn(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}
