package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"procurement-engine/internal/app"
	"procurement-engine/internal/core"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	log       *zap.Logger
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
// An empty jwtSecret leaves the API unauthenticated.
func NewHandler(svc app.ApplicationService, log *zap.Logger, allowedOrigins, jwtSecret string) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		svc:       svc,
		log:       log,
		jwtSecret: jwtSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Tracing)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes ─────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(h.RequireAuth)
		}
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/stocks", h.listStocks)
		r.Get("/api/stocks/{id}/balances/{product_id}", h.getBalance)
		r.Get("/api/suppliers", h.listSuppliers)
		r.Get("/api/suppliers/{id}", h.getSupplier)
		r.Get("/api/products", h.listProducts)
		r.Get("/api/products/{id}", h.getProduct)

		// Quotations
		r.Get("/api/quotations", h.searchQuotations)
		r.Post("/api/quotations/sync", h.syncQuotations)
		r.Post("/api/quotations/{id}/approve", h.approveQuotation)
		r.Post("/api/quotations/{id}/unapprove", h.unapproveQuotation)

		// Reorder points and alerts
		r.Get("/api/reorder-points", h.searchReorderPoints)
		r.Get("/api/reorder-points/totals", h.reorderPointTotals)
		r.Post("/api/reorder-points", h.registerReorderPoint)
		r.Post("/api/reorder-points/sync", h.syncReorderPoints)
		r.Get("/api/alerts", h.searchAlerts)
		r.Get("/api/alerts/totals", h.alertTotals)

		// Orders
		r.Get("/api/orders", h.searchOrders)
		r.Post("/api/orders/automatic", h.createAutomaticOrder)
		r.Get("/api/orders/{id}", h.getOrder)
		r.Post("/api/orders/{id}/status", h.changeOrderStatus)
		r.Post("/api/orders/{id}/receive", h.receiveOrder)
		r.Post("/api/orders/{id}/cancel", h.cancelOrder)

		// Ledger
		r.Get("/api/reservations", h.searchReservations)
		r.Get("/api/reservations/totals", h.reservationTotals)
		r.Post("/api/movements", h.registerMovement)
		r.Get("/api/movements", h.searchMovements)
		r.Get("/api/movements/totals", h.movementTotals)
		r.Get("/api/movements/{id}", h.getMovement)
		r.Post("/api/transfers", h.registerTransfer)
		r.Get("/api/transfers", h.searchTransfers)
		r.Get("/api/transfers/totals", h.transferTotals)
	})

	h.router = r
	return r
}

// health pings both databases.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}
	if err := h.svc.Health(r.Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		writeJSONStatus(w, http.StatusServiceUnavailable, response{Status: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, response{Status: "ok"})
}

func (h *Handler) listStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.svc.ListStocks(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, stocks)
}

// getBalance handles GET /api/stocks/{id}/balances/{product_id}.
func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	stockID, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	productID, err := strconv.Atoi(chi.URLParam(r, "product_id"))
	if err != nil || productID <= 0 {
		h.writeServiceError(w, r, &core.ValidationError{Field: "product_id", Message: "must be a positive integer"})
		return
	}
	bal, err := h.svc.GetBalance(r.Context(), stockID, productID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bal)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.svc.ListSuppliers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, suppliers)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	sup, err := h.svc.GetSupplier(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sup)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &core.ValidationError{Field: name, Message: "must be a non-negative integer"}
	}
	return v, nil
}

// queryTime parses an optional RFC 3339 or YYYY-MM-DD query parameter.
// With endOfDay set, a bare date resolves to the last instant of that day
// so an inclusive upper bound covers the whole day.
func queryTime(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return &t, nil
	}
	return nil, &core.ValidationError{Field: name, Message: "must be RFC 3339 or YYYY-MM-DD"}
}
