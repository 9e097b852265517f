package core

import "time"

// Stock is a storage location with a unit capacity. CurrentQuantity is the
// cached sum of all product balances held in it; Version increases on every
// quantity change.
type Stock struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	Capacity        int       `json:"capacity"`
	CurrentQuantity int       `json:"current_quantity"`
	Version         int64     `json:"version"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// AvailableCapacity is capacity minus current quantity, never negative.
func (s Stock) AvailableCapacity() int {
	if s.CurrentQuantity >= s.Capacity {
		return 0
	}
	return s.Capacity - s.CurrentQuantity
}

// Occupancy is current/capacity as a percentage clamped to [0, 100].
func (s Stock) Occupancy() float64 {
	if s.Capacity <= 0 {
		if s.CurrentQuantity > 0 {
			return 100
		}
		return 0
	}
	pct := float64(s.CurrentQuantity) / float64(s.Capacity) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// StockLevel is a read view of a stock with its capacity figures and the
// quantity already committed to open orders inbound to it.
type StockLevel struct {
	Stock
	AvailableCapacity int     `json:"available_capacity"`
	Occupancy         float64 `json:"occupancy"`
	InboundReserved   int     `json:"inbound_reserved"`
}

// PlanningCapacity is the room left once active inbound reservations are
// accounted for. Automatic orders are checked against this figure.
func (l StockLevel) PlanningCapacity() int {
	free := l.AvailableCapacity - l.InboundReserved
	if free < 0 {
		return 0
	}
	return free
}

func newStockLevel(s Stock, inboundReserved int) StockLevel {
	return StockLevel{
		Stock:             s,
		AvailableCapacity: s.AvailableCapacity(),
		Occupancy:         s.Occupancy(),
		InboundReserved:   inboundReserved,
	}
}
