package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError reports missing or malformed input. Nothing was mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports an unknown identifier.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// UnquotedProductError lists the products that have no approved, active quotation.
type UnquotedProductError struct {
	ProductIDs []int
}

func (e *UnquotedProductError) Error() string {
	ids := make([]string, len(e.ProductIDs))
	for i, id := range e.ProductIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("no approved active quotation for products [%s]", strings.Join(ids, ", "))
}

// InsufficientStockError reports an exit or transfer larger than the product balance.
type InsufficientStockError struct {
	StockID   int
	ProductID int
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d in stock %d: requested %d, available %d",
		e.ProductID, e.StockID, e.Requested, e.Available)
}

// CapacityExceededError reports that a stock cannot hold the requested quantity.
// InboundReserved is the part of the free space already promised to active
// purchase orders; manual movements do not consume it, but callers see it.
type CapacityExceededError struct {
	StockID         int
	Requested       int
	Available       int
	InboundReserved int
}

func (e *CapacityExceededError) Error() string {
	msg := fmt.Sprintf("stock %d capacity exceeded: requested %d, available %d", e.StockID, e.Requested, e.Available)
	if e.InboundReserved > 0 {
		msg += fmt.Sprintf(" (%d reserved for inbound orders)", e.InboundReserved)
	}
	return msg
}

// SameStockError reports a transfer whose origin and destination coincide.
type SameStockError struct {
	StockID int
}

func (e *SameStockError) Error() string {
	return fmt.Sprintf("origin and destination stock must differ (both are %d)", e.StockID)
}

// ConflictError reports a lost concurrent update or an illegal state change.
// Callers may retry lost races; illegal transitions will fail again.
type ConflictError struct {
	Entity string
	ID     int
	Reason string
}

func (e *ConflictError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s %d conflict: %s", e.Entity, e.ID, e.Reason)
}

func newUnquotedProductError(ids []int) *UnquotedProductError {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	return &UnquotedProductError{ProductIDs: sorted}
}

// mapPgError converts serialization failures and deadlocks into ConflictError
// so callers see a retryable error instead of a transport failure.
func mapPgError(err error, entity string, id int) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return &ConflictError{Entity: entity, ID: id, Reason: "concurrent update, retry"}
		case "23514":
			if pgErr.ConstraintName == "stocks_quantity_within_capacity" {
				return &ConflictError{Entity: entity, ID: id, Reason: "stock quantity constraint violated"}
			}
		}
	}
	return err
}
