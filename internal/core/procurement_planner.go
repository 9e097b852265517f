package core

import (
	"errors"
	"sort"
)

// PlannedItem is one order line priced from the chosen quotation.
type PlannedItem struct {
	ProductID   int
	Quantity    int
	UnitPrice   Money
	QuotationID int
}

// PlannedOrder groups the items whose best quotation comes from one supplier.
type PlannedOrder struct {
	SupplierID   int
	SupplierName string
	Items        []PlannedItem
	Total        Money
}

// Quantity sums the planned item quantities.
func (p PlannedOrder) Quantity() int {
	var n int
	for _, it := range p.Items {
		n += it.Quantity
	}
	return n
}

// NormalizeItems validates requested lines and merges repeated products,
// keeping the position of each product's first appearance.
func NormalizeItems(items []ItemRequest) ([]ItemRequest, error) {
	if len(items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one item is required"}
	}
	index := make(map[int]int, len(items))
	out := make([]ItemRequest, 0, len(items))
	for _, it := range items {
		if it.ProductID <= 0 {
			return nil, &ValidationError{Field: "items.product_id", Message: "must be positive"}
		}
		if it.Quantity <= 0 {
			return nil, &ValidationError{Field: "items.quantity", Message: "must be greater than zero"}
		}
		if i, seen := index[it.ProductID]; seen {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

// PlanAutomaticOrder ranks each item's quotations, groups items by the
// supplier of their best quotation and checks the combined quantity against
// capacity. Unquoted products are reported before capacity, and either check
// failing yields no plan at all. Orders are returned by ascending supplier id.
func PlanAutomaticOrder(stockID int, items []ItemRequest, quotations map[int][]Quotation, capacity int) ([]PlannedOrder, error) {
	items, err := NormalizeItems(items)
	if err != nil {
		return nil, err
	}

	var unquoted []int
	best := make(map[int]Quotation, len(items))
	for _, it := range items {
		q, err := BestQuotation(quotations[it.ProductID], RankByPrice)
		if err != nil {
			if errors.Is(err, ErrNoQuotations) || errors.Is(err, ErrNoUsableQuotation) {
				unquoted = append(unquoted, it.ProductID)
				continue
			}
			return nil, err
		}
		best[it.ProductID] = q
	}
	if len(unquoted) > 0 {
		return nil, newUnquotedProductError(unquoted)
	}

	var requested int
	for _, it := range items {
		requested += it.Quantity
	}
	if requested > capacity {
		return nil, &CapacityExceededError{StockID: stockID, Requested: requested, Available: capacity}
	}

	groups := make(map[int]*PlannedOrder)
	for _, it := range items {
		q := best[it.ProductID]
		g, ok := groups[q.SupplierID]
		if !ok {
			g = &PlannedOrder{SupplierID: q.SupplierID, SupplierName: q.SupplierName}
			groups[q.SupplierID] = g
		}
		g.Items = append(g.Items, PlannedItem{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			UnitPrice:   q.Price,
			QuotationID: q.ID,
		})
	}

	plan := make([]PlannedOrder, 0, len(groups))
	for _, g := range groups {
		lines := make([]OrderItem, len(g.Items))
		for i, it := range g.Items {
			lines[i] = OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
		}
		g.Total = OrderTotal(lines)
		plan = append(plan, *g)
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].SupplierID < plan[j].SupplierID })
	return plan, nil
}
