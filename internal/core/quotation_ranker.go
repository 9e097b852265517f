package core

import "errors"

var (
	// ErrNoQuotations means the product has no quotation at all.
	ErrNoQuotations = errors.New("product has no quotations")
	// ErrNoUsableQuotation means quotations exist but none is approved and active.
	ErrNoUsableQuotation = errors.New("product has no approved active quotation")
)

// RankingStrategy selects the ordering used to pick the best quotation.
// Every strategy ends with the quotation id so results are stable.
type RankingStrategy string

const (
	// RankByPrice orders by (price, lead time, id). Used by the planner.
	RankByPrice RankingStrategy = "price"
	// RankByLeadTime orders by (lead time, price, id).
	RankByLeadTime RankingStrategy = "lead_time"
)

// ParseRankingStrategy maps an empty value to RankByPrice.
func ParseRankingStrategy(s string) (RankingStrategy, error) {
	switch RankingStrategy(s) {
	case "", RankByPrice:
		return RankByPrice, nil
	case RankByLeadTime:
		return RankByLeadTime, nil
	}
	return "", &ValidationError{Field: "strategy", Message: "must be one of price, lead_time"}
}

// better reports whether a ranks strictly before b.
func (s RankingStrategy) better(a, b Quotation) bool {
	priceCmp := a.Price.Cmp(b.Price.Decimal)
	if s == RankByLeadTime {
		if a.LeadTimeDays != b.LeadTimeDays {
			return a.LeadTimeDays < b.LeadTimeDays
		}
		if priceCmp != 0 {
			return priceCmp < 0
		}
		return a.ID < b.ID
	}
	if priceCmp != 0 {
		return priceCmp < 0
	}
	if a.LeadTimeDays != b.LeadTimeDays {
		return a.LeadTimeDays < b.LeadTimeDays
	}
	return a.ID < b.ID
}

// BestQuotation picks the best approved and active quotation. It returns
// ErrNoQuotations for an empty input and ErrNoUsableQuotation when every
// quotation is filtered out.
func BestQuotation(quotations []Quotation, strategy RankingStrategy) (Quotation, error) {
	if len(quotations) == 0 {
		return Quotation{}, ErrNoQuotations
	}
	var (
		best  Quotation
		found bool
	)
	for _, q := range quotations {
		if !q.Usable() {
			continue
		}
		if !found || strategy.better(q, best) {
			best = q
			found = true
		}
	}
	if !found {
		return Quotation{}, ErrNoUsableQuotation
	}
	return best, nil
}

// RankQuotations returns the input in its original order with at most one
// entry flagged as best.
func RankQuotations(quotations []Quotation, strategy RankingStrategy) []RankedQuotation {
	ranked := make([]RankedQuotation, len(quotations))
	best, err := BestQuotation(quotations, strategy)
	for i, q := range quotations {
		ranked[i] = RankedQuotation{Quotation: q, Best: err == nil && q.ID == best.ID}
	}
	return ranked
}
