package core

import (
	"context"
	"strings"
	"time"
)

type MovementType string

const (
	MovementEntry MovementType = "entry"
	MovementExit  MovementType = "exit"
)

// Movement is an append-only ledger line. A product's balance in a stock is the
// sum of its entries minus its exits.
type Movement struct {
	ID          int          `json:"id"`
	OccurredAt  time.Time    `json:"occurred_at"`
	ProductID   int          `json:"product_id"`
	StockID     int          `json:"stock_id"`
	Quantity    int          `json:"quantity"`
	Type        MovementType `json:"type"`
	Reason      string       `json:"reason"`
	Responsible string       `json:"responsible"`
	TransferID  *int         `json:"transfer_id,omitempty"`
	OrderID     *int         `json:"order_id,omitempty"`
}

// Transfer moves a quantity of one product between two stocks. It is recorded
// as one immutable row backed by an exit and an entry movement.
type Transfer struct {
	ID                 int       `json:"id"`
	OccurredAt         time.Time `json:"occurred_at"`
	ProductID          int       `json:"product_id"`
	Quantity           int       `json:"quantity"`
	OriginStockID      int       `json:"origin_stock_id"`
	DestinationStockID int       `json:"destination_stock_id"`
	Responsible        string    `json:"responsible"`
	Reason             string    `json:"reason"`
}

type MovementRequest struct {
	ProductID   int
	StockID     int
	Quantity    int
	Type        MovementType
	Reason      string
	Responsible string
}

func (r MovementRequest) Validate() error {
	if r.ProductID <= 0 {
		return &ValidationError{Field: "product_id", Message: "must be positive"}
	}
	if r.StockID <= 0 {
		return &ValidationError{Field: "stock_id", Message: "must be positive"}
	}
	if r.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "must be greater than zero"}
	}
	if r.Type != MovementEntry && r.Type != MovementExit {
		return &ValidationError{Field: "type", Message: "must be entry or exit"}
	}
	if strings.TrimSpace(r.Responsible) == "" {
		return &ValidationError{Field: "responsible", Message: "is required"}
	}
	return nil
}

type TransferRequest struct {
	ProductID          int
	OriginStockID      int
	DestinationStockID int
	Quantity           int
	Responsible        string
	Reason             string
}

// Validate checks shape only. SameStockError is reported here as well since it
// needs no stored state.
func (r TransferRequest) Validate() error {
	if r.ProductID <= 0 {
		return &ValidationError{Field: "product_id", Message: "must be positive"}
	}
	if r.OriginStockID <= 0 {
		return &ValidationError{Field: "origin_stock_id", Message: "must be positive"}
	}
	if r.DestinationStockID <= 0 {
		return &ValidationError{Field: "destination_stock_id", Message: "must be positive"}
	}
	if r.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "must be greater than zero"}
	}
	if strings.TrimSpace(r.Responsible) == "" {
		return &ValidationError{Field: "responsible", Message: "is required"}
	}
	if r.OriginStockID == r.DestinationStockID {
		return &SameStockError{StockID: r.OriginStockID}
	}
	return nil
}

// LedgerService records stock movements and transfers.
type LedgerService interface {
	// RegisterMovement appends an entry or exit and updates the stock counters.
	// Exits beyond the product balance fail with InsufficientStockError; entries
	// beyond the stock capacity fail with CapacityExceededError.
	RegisterMovement(ctx context.Context, req MovementRequest) (*Movement, error)

	// RegisterTransfer moves stock between two stocks atomically.
	RegisterTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
}
