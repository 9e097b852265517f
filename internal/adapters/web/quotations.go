package web

import (
	"context"
	"net/http"

	"procurement-engine/internal/core"
)

// searchQuotations handles GET /api/quotations?strategy=price|lead_time.
func (h *Handler) searchQuotations(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.SearchQuotations(r.Context(), r.URL.Query().Get("strategy"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, groups)
}

func (h *Handler) approveQuotation(w http.ResponseWriter, r *http.Request) {
	h.updateApproval(w, r, h.svc.ApproveQuotation)
}

func (h *Handler) unapproveQuotation(w http.ResponseWriter, r *http.Request) {
	h.updateApproval(w, r, h.svc.UnapproveQuotation)
}

func (h *Handler) updateApproval(w http.ResponseWriter, r *http.Request, fn func(context.Context, int) (*core.Quotation, error)) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	q, err := fn(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, q)
}

// syncQuotations handles POST /api/quotations/sync.
func (h *Handler) syncQuotations(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SyncQuotations(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
