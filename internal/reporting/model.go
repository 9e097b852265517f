package reporting

import (
	"time"

	"procurement-engine/internal/core"
)

// ReservationFilter narrows SearchReservations. Query matches product name,
// stock name or the order id.
type ReservationFilter struct {
	Query  string
	Status core.ReservationStatus
}

type ReservationView struct {
	core.Reservation
	StockName string `json:"stock_name"`
}

type ReservationTotals struct {
	Total          int `json:"total" db:"total"`
	Active         int `json:"active" db:"active"`
	Released       int `json:"released" db:"released"`
	ActiveQuantity int `json:"active_quantity" db:"active_quantity"`
}

// MovementFilter narrows SearchMovements. From and To bound occurred_at
// inclusively; nil means unbounded.
type MovementFilter struct {
	Type core.MovementType
	From *time.Time
	To   *time.Time
}

type MovementView struct {
	core.Movement
	ProductName string `json:"product_name"`
	StockName   string `json:"stock_name"`
}

type MovementTotals struct {
	Total      int `json:"total" db:"total"`
	Entries    int `json:"entries" db:"entries"`
	Exits      int `json:"exits" db:"exits"`
	EntryUnits int `json:"entry_units" db:"entry_units"`
	ExitUnits  int `json:"exit_units" db:"exit_units"`
}

type TransferView struct {
	core.Transfer
	ProductName          string `json:"product_name"`
	OriginStockName      string `json:"origin_stock_name"`
	DestinationStockName string `json:"destination_stock_name"`
}

type TransferTotals struct {
	Count            int `json:"count" db:"count"`
	UnitsMoved       int `json:"units_moved" db:"units_moved"`
	DistinctProducts int `json:"distinct_products" db:"distinct_products"`
}

// ── Row types ────────────────────────────────────────────────────────────────

type reservationRow struct {
	ID          int                    `db:"id"`
	OrderID     int                    `db:"order_id"`
	OrderItemID int                    `db:"order_item_id"`
	ProductID   int                    `db:"product_id"`
	ProductName string                 `db:"product_name"`
	StockID     int                    `db:"stock_id"`
	StockName   string                 `db:"stock_name"`
	Quantity    int                    `db:"quantity"`
	ReservedAt  time.Time              `db:"reserved_at"`
	Status      core.ReservationStatus `db:"status"`
	ReleaseType *core.ReleaseType      `db:"release_type"`
	ReleasedAt  *time.Time             `db:"released_at"`
}

func (r reservationRow) view() ReservationView {
	return ReservationView{
		Reservation: core.Reservation{
			ID:          r.ID,
			OrderID:     r.OrderID,
			OrderItemID: r.OrderItemID,
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			StockID:     r.StockID,
			Quantity:    r.Quantity,
			ReservedAt:  r.ReservedAt,
			Status:      r.Status,
			ReleaseType: r.ReleaseType,
			ReleasedAt:  r.ReleasedAt,
		},
		StockName: r.StockName,
	}
}

type movementRow struct {
	ID          int               `db:"id"`
	OccurredAt  time.Time         `db:"occurred_at"`
	ProductID   int               `db:"product_id"`
	ProductName string            `db:"product_name"`
	StockID     int               `db:"stock_id"`
	StockName   string            `db:"stock_name"`
	Quantity    int               `db:"quantity"`
	Type        core.MovementType `db:"type"`
	Reason      string            `db:"reason"`
	Responsible string            `db:"responsible"`
	TransferID  *int              `db:"transfer_id"`
	OrderID     *int              `db:"order_id"`
}

func (r movementRow) view() MovementView {
	return MovementView{
		Movement: core.Movement{
			ID:          r.ID,
			OccurredAt:  r.OccurredAt,
			ProductID:   r.ProductID,
			StockID:     r.StockID,
			Quantity:    r.Quantity,
			Type:        r.Type,
			Reason:      r.Reason,
			Responsible: r.Responsible,
			TransferID:  r.TransferID,
			OrderID:     r.OrderID,
		},
		ProductName: r.ProductName,
		StockName:   r.StockName,
	}
}

type transferRow struct {
	ID                   int       `db:"id"`
	OccurredAt           time.Time `db:"occurred_at"`
	ProductID            int       `db:"product_id"`
	ProductName          string    `db:"product_name"`
	Quantity             int       `db:"quantity"`
	OriginStockID        int       `db:"origin_stock_id"`
	OriginStockName      string    `db:"origin_stock_name"`
	DestinationStockID   int       `db:"destination_stock_id"`
	DestinationStockName string    `db:"destination_stock_name"`
	Responsible          string    `db:"responsible"`
	Reason               string    `db:"reason"`
}

func (r transferRow) view() TransferView {
	return TransferView{
		Transfer: core.Transfer{
			ID:                 r.ID,
			OccurredAt:         r.OccurredAt,
			ProductID:          r.ProductID,
			Quantity:           r.Quantity,
			OriginStockID:      r.OriginStockID,
			DestinationStockID: r.DestinationStockID,
			Responsible:        r.Responsible,
			Reason:             r.Reason,
		},
		ProductName:          r.ProductName,
		OriginStockName:      r.OriginStockName,
		DestinationStockName: r.DestinationStockName,
	}
}
