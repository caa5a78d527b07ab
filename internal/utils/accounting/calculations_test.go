package accounting_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsuite/ledger_engine/internal/core/domain"
	"github.com/finsuite/ledger_engine/internal/utils/accounting"
)

func TestSignedDelta(t *testing.T) {
	amount := decimal.NewFromInt(100)

	tests := []struct {
		name        string
		accountType domain.AccountType
		debit       bool
		want        decimal.Decimal
	}{
		{"debit increases asset", domain.Asset, true, amount},
		{"credit decreases asset", domain.Asset, false, amount.Neg()},
		{"debit increases expense", domain.Expense, true, amount},
		{"credit decreases expense", domain.Expense, false, amount.Neg()},
		{"debit decreases liability", domain.Liability, true, amount.Neg()},
		{"credit increases liability", domain.Liability, false, amount},
		{"debit decreases equity", domain.Equity, true, amount.Neg()},
		{"credit increases equity", domain.Equity, false, amount},
		{"debit decreases revenue", domain.Revenue, true, amount.Neg()},
		{"credit increases revenue", domain.Revenue, false, amount},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			line := domain.JournalEntryLine{AccountID: "acc-1"}
			if tc.debit {
				line.Debit = amount
			} else {
				line.Credit = amount
			}

			got, err := accounting.SignedDelta(line, tc.accountType)
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %s, want %s", got, tc.want)
		})
	}
}

func TestSignedDeltaUnknownAccountType(t *testing.T) {
	line := domain.JournalEntryLine{AccountID: "acc-1", Debit: decimal.NewFromInt(10)}

	_, err := accounting.SignedDelta(line, domain.AccountType("SUSPENSE"))
	assert.Error(t, err)
}

func TestBalanceDifference(t *testing.T) {
	lines := []domain.JournalEntryLine{
		{AccountID: "a", Debit: decimal.NewFromInt(300)},
		{AccountID: "b", Debit: decimal.NewFromInt(200)},
		{AccountID: "c", Credit: decimal.NewFromFloat(499.99)},
	}

	debits, credits, diff := accounting.BalanceDifference(lines)
	assert.True(t, debits.Equal(decimal.NewFromInt(500)))
	assert.True(t, credits.Equal(decimal.NewFromFloat(499.99)))
	assert.True(t, diff.Equal(decimal.NewFromFloat(0.01)))
}

func TestIsBalancedToleranceEdges(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)

	balanced := []domain.JournalEntryLine{
		{AccountID: "a", Debit: decimal.NewFromFloat(100.01)},
		{AccountID: "b", Credit: decimal.NewFromInt(100)},
	}
	assert.True(t, accounting.IsBalanced(balanced, tolerance), "difference exactly at tolerance passes")

	unbalanced := []domain.JournalEntryLine{
		{AccountID: "a", Debit: decimal.NewFromFloat(100.02)},
		{AccountID: "b", Credit: decimal.NewFromInt(100)},
	}
	assert.False(t, accounting.IsBalanced(unbalanced, tolerance), "difference above tolerance fails")

	mirrored := []domain.JournalEntryLine{
		{AccountID: "a", Credit: decimal.NewFromFloat(100.02)},
		{AccountID: "b", Debit: decimal.NewFromInt(100)},
	}
	assert.False(t, accounting.IsBalanced(mirrored, tolerance), "tolerance applies to the absolute difference")
}

func TestNetDeltasAggregatesPerAccount(t *testing.T) {
	types := map[string]domain.AccountType{
		"cash":    domain.Asset,
		"revenue": domain.Revenue,
	}
	// Two lines hit the cash account: one debit, one smaller credit.
	lines := []domain.JournalEntryLine{
		{AccountID: "cash", Debit: decimal.NewFromInt(500)},
		{AccountID: "cash", Credit: decimal.NewFromInt(120)},
		{AccountID: "revenue", Credit: decimal.NewFromInt(380)},
	}

	deltas, err := accounting.NetDeltas(lines, types)
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	assert.True(t, deltas["cash"].Equal(decimal.NewFromInt(380)))
	assert.True(t, deltas["revenue"].Equal(decimal.NewFromInt(380)))
}

func TestNetDeltasMissingAccountType(t *testing.T) {
	lines := []domain.JournalEntryLine{
		{AccountID: "ghost", Debit: decimal.NewFromInt(10)},
	}

	_, err := accounting.NetDeltas(lines, map[string]domain.AccountType{})
	assert.Error(t, err)
}
