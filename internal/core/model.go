package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the active/inactive flag shared by catalog records.
// Inactive records stay referenced by history and are never deleted.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Money is a monetary amount with two-decimal semantics. It marshals to a JSON
// number with exactly two decimals and scans from NUMERIC columns.
type Money struct {
	decimal.Decimal
}

// NewMoney rounds d to cents.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

type Product struct {
	ID          int             `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Weight      decimal.Decimal `json:"weight"`
	Perishable  bool            `json:"perishable"`
	Status      Status          `json:"status"`
	SupplierIDs []int           `json:"supplier_ids"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Supplier struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	TaxID        string    `json:"tax_id"`
	Contact      string    `json:"contact"`
	LeadTimeDays int       `json:"lead_time_days"`
	BaseCost     Money     `json:"base_cost"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
