package core

import (
	"context"
	"time"
)

type QuotationValidity string

const (
	ValidityActive  QuotationValidity = "active"
	ValidityExpired QuotationValidity = "expired"
)

type QuotationApproval string

const (
	ApprovalApproved QuotationApproval = "approved"
	ApprovalPending  QuotationApproval = "pending"
)

type Quotation struct {
	ID           int               `json:"id"`
	ProductID    int               `json:"product_id"`
	SupplierID   int               `json:"supplier_id"`
	SupplierName string            `json:"supplier_name"`
	Price        Money             `json:"price"`
	LeadTimeDays int               `json:"lead_time_days"`
	Validity     QuotationValidity `json:"validity"`
	Approval     QuotationApproval `json:"approval"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Usable reports whether the quotation may be used to place an order.
func (q Quotation) Usable() bool {
	return q.Approval == ApprovalApproved && q.Validity == ValidityActive
}

// RankedQuotation is a quotation annotated with whether it is currently the
// best one for its product. The flag is computed per query and never stored.
type RankedQuotation struct {
	Quotation
	Best bool `json:"best"`
}

// ProductQuotations groups every quotation of one product.
type ProductQuotations struct {
	ProductID   int               `json:"product_id"`
	ProductName string            `json:"product_name"`
	Quotations  []RankedQuotation `json:"quotations"`
}

// QuotationSyncResult counts what a synchronization did.
type QuotationSyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// QuotationService ranks, approves and synchronizes supplier quotations.
type QuotationService interface {
	// SearchQuotations returns all quotations grouped by product, flagging the best of each group.
	SearchQuotations(ctx context.Context, strategy RankingStrategy) ([]ProductQuotations, error)

	// ApproveQuotation marks a quotation approved. Approving an approved quotation is a no-op.
	ApproveQuotation(ctx context.Context, id int) (*Quotation, error)

	// UnapproveQuotation returns a quotation to pending. Idempotent.
	UnapproveQuotation(ctx context.Context, id int) (*Quotation, error)

	// SyncQuotations creates a pending quotation for every active product/supplier link that lacks
	// one, priced at the supplier's base cost, and refreshes price and lead time of existing ones.
	SyncQuotations(ctx context.Context) (*QuotationSyncResult, error)
}
