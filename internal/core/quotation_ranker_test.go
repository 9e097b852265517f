package core_test

import (
	"testing"

	"procurement-engine/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(t *testing.T, s string) core.Money {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return core.NewMoney(d)
}

func quote(t *testing.T, id int, price string, lead int, approval core.QuotationApproval, validity core.QuotationValidity) core.Quotation {
	t.Helper()
	return core.Quotation{
		ID:           id,
		ProductID:    1,
		SupplierID:   id * 10,
		Price:        money(t, price),
		LeadTimeDays: lead,
		Approval:     approval,
		Validity:     validity,
	}
}

func TestBestQuotation_IgnoresUnapprovedCheaperQuotes(t *testing.T) {
	qs := []core.Quotation{
		quote(t, 1, "25.50", 5, core.ApprovalPending, core.ValidityActive),
		quote(t, 2, "22.00", 7, core.ApprovalApproved, core.ValidityActive),
		quote(t, 3, "19.50", 3, core.ApprovalPending, core.ValidityActive),
	}

	best, err := core.BestQuotation(qs, core.RankByPrice)
	require.NoError(t, err)
	assert.Equal(t, 2, best.ID)
	assert.Equal(t, "22.00", best.Price.StringFixed(2))
}

func TestBestQuotation_NoCandidates(t *testing.T) {
	_, err := core.BestQuotation(nil, core.RankByPrice)
	assert.ErrorIs(t, err, core.ErrNoQuotations)

	qs := []core.Quotation{
		quote(t, 1, "10.00", 1, core.ApprovalPending, core.ValidityActive),
		quote(t, 2, "9.00", 1, core.ApprovalApproved, core.ValidityExpired),
	}
	_, err = core.BestQuotation(qs, core.RankByPrice)
	assert.ErrorIs(t, err, core.ErrNoUsableQuotation)
}

func TestBestQuotation_TieBreaks(t *testing.T) {
	tests := []struct {
		name     string
		strategy core.RankingStrategy
		quotes   []core.Quotation
		wantID   int
	}{
		{
			name:     "price then lead time",
			strategy: core.RankByPrice,
			quotes: []core.Quotation{
				quote(t, 1, "10.00", 9, core.ApprovalApproved, core.ValidityActive),
				quote(t, 2, "10.00", 4, core.ApprovalApproved, core.ValidityActive),
			},
			wantID: 2,
		},
		{
			name:     "full tie falls back to lowest id",
			strategy: core.RankByPrice,
			quotes: []core.Quotation{
				quote(t, 7, "10.00", 4, core.ApprovalApproved, core.ValidityActive),
				quote(t, 3, "10.00", 4, core.ApprovalApproved, core.ValidityActive),
			},
			wantID: 3,
		},
		{
			name:     "lead time first",
			strategy: core.RankByLeadTime,
			quotes: []core.Quotation{
				quote(t, 1, "5.00", 9, core.ApprovalApproved, core.ValidityActive),
				quote(t, 2, "8.00", 2, core.ApprovalApproved, core.ValidityActive),
			},
			wantID: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, err := core.BestQuotation(tt.quotes, tt.strategy)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, best.ID)
		})
	}
}

func TestBestQuotation_OrderIndependent(t *testing.T) {
	a := quote(t, 1, "12.00", 3, core.ApprovalApproved, core.ValidityActive)
	b := quote(t, 2, "12.00", 3, core.ApprovalApproved, core.ValidityActive)
	c := quote(t, 3, "11.99", 8, core.ApprovalApproved, core.ValidityActive)

	first, err := core.BestQuotation([]core.Quotation{a, b, c}, core.RankByPrice)
	require.NoError(t, err)
	second, err := core.BestQuotation([]core.Quotation{c, b, a}, core.RankByPrice)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, first.ID)
}

func TestRankQuotations_FlagsAtMostOne(t *testing.T) {
	qs := []core.Quotation{
		quote(t, 1, "25.50", 5, core.ApprovalPending, core.ValidityActive),
		quote(t, 2, "22.00", 7, core.ApprovalApproved, core.ValidityActive),
	}
	ranked := core.RankQuotations(qs, core.RankByPrice)
	require.Len(t, ranked, 2)
	assert.False(t, ranked[0].Best)
	assert.True(t, ranked[1].Best)

	none := core.RankQuotations(qs[:1], core.RankByPrice)
	assert.False(t, none[0].Best)
}

func TestParseRankingStrategy(t *testing.T) {
	s, err := core.ParseRankingStrategy("")
	require.NoError(t, err)
	assert.Equal(t, core.RankByPrice, s)

	s, err = core.ParseRankingStrategy("lead_time")
	require.NoError(t, err)
	assert.Equal(t, core.RankByLeadTime, s)

	_, err = core.ParseRankingStrategy("cheapest")
	var ve *core.ValidationError
	assert.ErrorAs(t, err, &ve)
}
