package accounting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finsuite/ledger_engine/internal/core/domain"
)

// DefaultBalanceTolerance is the maximum permitted |debits - credits| for an
// entry to count as balanced, in the ledger's base unit.
var DefaultBalanceTolerance = decimal.NewFromFloat(0.01)

// SignedDelta returns the signed balance change a line applies to its account.
// A debit increases ASSET/EXPENSE accounts and decreases
// LIABILITY/EQUITY/REVENUE accounts; a credit is the exact mirror.
func SignedDelta(line domain.JournalEntryLine, accountType domain.AccountType) (decimal.Decimal, error) {
	amount := line.Amount()
	isDebit := line.IsDebit()

	switch accountType {
	case domain.Asset, domain.Expense:
		if !isDebit {
			amount = amount.Neg()
		}
	case domain.Liability, domain.Equity, domain.Revenue:
		if isDebit {
			amount = amount.Neg()
		}
	default:
		return decimal.Zero, fmt.Errorf("unknown account type %q for account %s", accountType, line.AccountID)
	}
	return amount, nil
}

// BalanceDifference returns totalDebits, totalCredits and their difference
// (debits minus credits) for a set of lines.
func BalanceDifference(lines []domain.JournalEntryLine) (debits, credits, diff decimal.Decimal) {
	debits = decimal.Zero
	credits = decimal.Zero
	for _, l := range lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	return debits, credits, debits.Sub(credits)
}

// IsBalanced reports whether |debits - credits| is within the tolerance.
func IsBalanced(lines []domain.JournalEntryLine, tolerance decimal.Decimal) bool {
	_, _, diff := BalanceDifference(lines)
	return diff.Abs().LessThanOrEqual(tolerance)
}

// NetDeltas aggregates per-account signed deltas for a set of lines.
func NetDeltas(lines []domain.JournalEntryLine, accountTypes map[string]domain.AccountType) (map[string]decimal.Decimal, error) {
	deltas := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		accType, ok := accountTypes[l.AccountID]
		if !ok {
			return nil, fmt.Errorf("missing account type for account %s", l.AccountID)
		}
		delta, err := SignedDelta(l, accType)
		if err != nil {
			return nil, err
		}
		deltas[l.AccountID] = deltas[l.AccountID].Add(delta)
	}
	return deltas, nil
}
