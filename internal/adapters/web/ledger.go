package web

import (
	"net/http"

	"procurement-engine/internal/core"
	"procurement-engine/internal/reporting"
)

type movementRequest struct {
	ProductID   int    `json:"product_id"`
	StockID     int    `json:"stock_id"`
	Quantity    int    `json:"quantity"`
	Type        string `json:"type"`
	Reason      string `json:"reason"`
	Responsible string `json:"responsible"`
}

type transferRequest struct {
	ProductID          int    `json:"product_id"`
	OriginStockID      int    `json:"origin_stock_id"`
	DestinationStockID int    `json:"destination_stock_id"`
	Quantity           int    `json:"quantity"`
	Responsible        string `json:"responsible"`
	Reason             string `json:"reason"`
}

// responsibleOrCaller falls back to the authenticated subject when the body
// names no responsible party.
func responsibleOrCaller(r *http.Request, given string) string {
	if given != "" {
		return given
	}
	if claims := authFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}

// searchReservations handles GET /api/reservations?q=&status=.
func (h *Handler) searchReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, err := h.svc.SearchReservations(r.Context(), reporting.ReservationFilter{
		Query:  q.Get("q"),
		Status: core.ReservationStatus(q.Get("status")),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, views)
}

func (h *Handler) reservationTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.svc.ReservationTotals(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, totals)
}

// registerMovement handles POST /api/movements.
func (h *Handler) registerMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.RegisterMovement(r.Context(), core.MovementRequest{
		ProductID:   req.ProductID,
		StockID:     req.StockID,
		Quantity:    req.Quantity,
		Type:        core.MovementType(req.Type),
		Reason:      req.Reason,
		Responsible: responsibleOrCaller(r, req.Responsible),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, m)
}

func (h *Handler) movementFilter(r *http.Request) (reporting.MovementFilter, error) {
	var (
		f   reporting.MovementFilter
		err error
	)
	f.Type = core.MovementType(r.URL.Query().Get("type"))
	if f.From, err = queryTime(r, "from", false); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "to", true); err != nil {
		return f, err
	}
	return f, nil
}

// searchMovements handles GET /api/movements?type=&from=&to=.
func (h *Handler) searchMovements(w http.ResponseWriter, r *http.Request) {
	f, err := h.movementFilter(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	views, err := h.svc.SearchMovements(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, views)
}

func (h *Handler) movementTotals(w http.ResponseWriter, r *http.Request) {
	f, err := h.movementFilter(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	totals, err := h.svc.MovementTotals(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, totals)
}

func (h *Handler) getMovement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	m, err := h.svc.GetMovement(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, m)
}

// registerTransfer handles POST /api/transfers.
func (h *Handler) registerTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.RegisterTransfer(r.Context(), core.TransferRequest{
		ProductID:          req.ProductID,
		OriginStockID:      req.OriginStockID,
		DestinationStockID: req.DestinationStockID,
		Quantity:           req.Quantity,
		Responsible:        responsibleOrCaller(r, req.Responsible),
		Reason:             req.Reason,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, t)
}

// searchTransfers handles GET /api/transfers?q=.
func (h *Handler) searchTransfers(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.SearchTransfers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, views)
}

func (h *Handler) transferTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.svc.TransferTotals(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, totals)
}
