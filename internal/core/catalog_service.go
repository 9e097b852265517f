package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogService provides read access to supplier and product master data.
type CatalogService interface {
	// ListSuppliers returns every supplier, active or not, ordered by name.
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	GetSupplier(ctx context.Context, id int) (*Supplier, error)

	// ListProducts returns every product with the ids of the suppliers linked to it.
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
}

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

const supplierSelect = `
	SELECT id, name, tax_id, contact, lead_time_days, base_cost, status, created_at
	FROM suppliers`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.TaxID, &s.Contact, &s.LeadTimeDays, &s.BaseCost, &s.Status, &s.CreatedAt)
	return s, err
}

func (s *catalogService) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := s.pool.Query(ctx, supplierSelect+" ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := []Supplier{}
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *catalogService) GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	sup, err := scanSupplier(s.pool.QueryRow(ctx, supplierSelect+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "supplier", ID: id}
		}
		return nil, fmt.Errorf("get supplier %d: %w", id, err)
	}
	return &sup, nil
}

const productSelect = `
	SELECT p.id, p.code, p.name, p.weight, p.perishable, p.status, p.created_at,
	       COALESCE(array_agg(ps.supplier_id ORDER BY ps.supplier_id)
	                FILTER (WHERE ps.supplier_id IS NOT NULL), '{}')
	FROM products p
	LEFT JOIN product_suppliers ps ON ps.product_id = p.id`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var supplierIDs []int32
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Weight, &p.Perishable, &p.Status, &p.CreatedAt, &supplierIDs); err != nil {
		return p, err
	}
	p.SupplierIDs = make([]int, len(supplierIDs))
	for i, id := range supplierIDs {
		p.SupplierIDs[i] = int(id)
	}
	return p, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, productSelect+" GROUP BY p.id ORDER BY p.name, p.id")
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, productSelect+" WHERE p.id = $1 GROUP BY p.id", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "product", ID: id}
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &p, nil
}
