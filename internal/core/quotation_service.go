package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type quotationService struct {
	pool *pgxpool.Pool
}

func NewQuotationService(pool *pgxpool.Pool) QuotationService {
	return &quotationService{pool: pool}
}

const quotationColumns = `
	q.id, q.product_id, q.supplier_id, s.name, q.price, q.lead_time_days,
	q.validity, q.approval, q.updated_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.ProductID, &q.SupplierID, &q.SupplierName, &q.Price, &q.LeadTimeDays,
		&q.Validity, &q.Approval, &q.UpdatedAt)
	return q, err
}

func (s *quotationService) SearchQuotations(ctx context.Context, strategy RankingStrategy) ([]ProductQuotations, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.name, `+quotationColumns+`
		FROM quotations q
		JOIN products p  ON p.id = q.product_id
		JOIN suppliers s ON s.id = q.supplier_id
		ORDER BY p.name, q.product_id, q.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotations: %w", err)
	}
	defer rows.Close()

	groups := []ProductQuotations{}
	var current []Quotation
	var currentProduct ProductQuotations
	flush := func() {
		if len(current) == 0 {
			return
		}
		currentProduct.Quotations = RankQuotations(current, strategy)
		groups = append(groups, currentProduct)
		current = nil
	}

	for rows.Next() {
		var productName string
		var q Quotation
		if err := rows.Scan(&productName, &q.ID, &q.ProductID, &q.SupplierID, &q.SupplierName, &q.Price,
			&q.LeadTimeDays, &q.Validity, &q.Approval, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		if len(current) > 0 && current[0].ProductID != q.ProductID {
			flush()
		}
		if len(current) == 0 {
			currentProduct = ProductQuotations{ProductID: q.ProductID, ProductName: productName}
		}
		current = append(current, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotations: %w", err)
	}
	flush()
	return groups, nil
}

func (s *quotationService) ApproveQuotation(ctx context.Context, id int) (*Quotation, error) {
	return s.setApproval(ctx, id, ApprovalApproved)
}

func (s *quotationService) UnapproveQuotation(ctx context.Context, id int) (*Quotation, error) {
	return s.setApproval(ctx, id, ApprovalPending)
}

func (s *quotationService) setApproval(ctx context.Context, id int, approval QuotationApproval) (*Quotation, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Message: "must be positive"}
	}

	// The approval guard keeps updated_at stable on repeated calls.
	if _, err := s.pool.Exec(ctx, `
		UPDATE quotations SET approval = $2, updated_at = now()
		WHERE id = $1 AND approval <> $2
	`, id, approval); err != nil {
		return nil, fmt.Errorf("failed to update quotation %d: %w", id, err)
	}

	q, err := scanQuotation(s.pool.QueryRow(ctx, `
		SELECT `+quotationColumns+`
		FROM quotations q
		JOIN suppliers s ON s.id = q.supplier_id
		WHERE q.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "quotation", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch quotation %d: %w", id, err)
	}
	return &q, nil
}

func (s *quotationService) SyncQuotations(ctx context.Context) (*QuotationSyncResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT ps.product_id, ps.supplier_id, s.base_cost, s.lead_time_days, q.id
		FROM product_suppliers ps
		JOIN products p  ON p.id = ps.product_id AND p.status = 'active'
		JOIN suppliers s ON s.id = ps.supplier_id AND s.status = 'active'
		LEFT JOIN quotations q ON q.product_id = ps.product_id AND q.supplier_id = ps.supplier_id
		ORDER BY ps.product_id, ps.supplier_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query product suppliers: %w", err)
	}

	type link struct {
		productID, supplierID, leadTime int
		baseCost                        Money
		quotationID                     *int
	}
	var links []link
	for rows.Next() {
		var l link
		if err := rows.Scan(&l.productID, &l.supplierID, &l.baseCost, &l.leadTime, &l.quotationID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product supplier: %w", err)
		}
		links = append(links, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product suppliers: %w", err)
	}

	result := &QuotationSyncResult{}
	for _, l := range links {
		if !l.baseCost.IsPositive() {
			result.Skipped++
			continue
		}
		if l.quotationID == nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO quotations (product_id, supplier_id, price, lead_time_days, validity, approval)
				VALUES ($1, $2, $3, $4, 'active', 'pending')
			`, l.productID, l.supplierID, l.baseCost.Decimal, l.leadTime); err != nil {
				return nil, fmt.Errorf("failed to create quotation for product %d supplier %d: %w", l.productID, l.supplierID, err)
			}
			result.Created++
			continue
		}
		tag, err := tx.Exec(ctx, `
			UPDATE quotations SET price = $2, lead_time_days = $3, updated_at = now()
			WHERE id = $1 AND (price <> $2 OR lead_time_days <> $3)
		`, *l.quotationID, l.baseCost.Decimal, l.leadTime)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh quotation %d: %w", *l.quotationID, err)
		}
		if tag.RowsAffected() > 0 {
			result.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quotation sync: %w", err)
	}
	return result, nil
}

// quotationsForProductsTx loads every quotation of the given products keyed by
// product id, usable or not, so the ranker can tell "none" from "none usable".
func quotationsForProductsTx(ctx context.Context, q querier, productIDs []int) (map[int][]Quotation, error) {
	rows, err := q.Query(ctx, `
		SELECT `+quotationColumns+`
		FROM quotations q
		JOIN suppliers s ON s.id = q.supplier_id
		WHERE q.product_id = ANY($1)
		ORDER BY q.product_id, q.id
	`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotations: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]Quotation)
	for rows.Next() {
		quote, err := scanQuotation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		out[quote.ProductID] = append(out[quote.ProductID], quote)
	}
	return out, rows.Err()
}
