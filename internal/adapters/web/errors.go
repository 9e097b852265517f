package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"procurement-engine/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorDetails(w, r, message, code, status, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, message, code string, status int, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps domain errors to HTTP statuses:
// 400 validation, 404 not found, 409 conflict, 422 business rule, 500 otherwise.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation   *core.ValidationError
		notFound     *core.NotFoundError
		conflict     *core.ConflictError
		sameStock    *core.SameStockError
		unquoted     *core.UnquotedProductError
		insufficient *core.InsufficientStockError
		capacity     *core.CapacityExceededError
	)
	switch {
	case errors.As(err, &validation):
		writeErrorDetails(w, r, err.Error(), "VALIDATION_ERROR", http.StatusBadRequest,
			map[string]string{"field": validation.Field})
	case errors.As(err, &notFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.As(err, &sameStock):
		writeError(w, r, err.Error(), "SAME_STOCK", http.StatusConflict)
	case errors.As(err, &conflict):
		writeError(w, r, err.Error(), "CONFLICT", http.StatusConflict)
	case errors.As(err, &unquoted):
		writeErrorDetails(w, r, err.Error(), "UNQUOTED_PRODUCT", http.StatusUnprocessableEntity,
			map[string][]int{"product_ids": unquoted.ProductIDs})
	case errors.As(err, &insufficient):
		writeErrorDetails(w, r, err.Error(), "INSUFFICIENT_STOCK", http.StatusUnprocessableEntity, map[string]int{
			"stock_id":   insufficient.StockID,
			"product_id": insufficient.ProductID,
			"requested":  insufficient.Requested,
			"available":  insufficient.Available,
		})
	case errors.As(err, &capacity):
		writeErrorDetails(w, r, err.Error(), "CAPACITY_EXCEEDED", http.StatusUnprocessableEntity, map[string]int{
			"stock_id":         capacity.StockID,
			"requested":        capacity.Requested,
			"available":        capacity.Available,
			"inbound_reserved": capacity.InboundReserved,
		})
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
