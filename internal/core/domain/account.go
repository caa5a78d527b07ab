package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting category of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// IsValid reports whether the account type is one of the five ledger categories.
func (t AccountType) IsValid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// Account represents one ledger account in the chart of accounts.
// Balance is mutated only by the posting coordinator inside the posting
// transaction; every other writer goes through the account service.
type Account struct {
	AccountID       string      `json:"accountID"`   // Primary Key (UUID)
	AccountCode     string      `json:"accountCode"` // Unique human-facing code (e.g. "1010")
	Name            string      `json:"name"`
	AccountType     AccountType `json:"accountType"`
	ParentAccountID string      `json:"parentAccountID"` // Nullable FK -> accounts.account_id (hierarchical roll-up)
	Description     string      `json:"description"`
	IsActive        bool        `json:"isActive"` // Accounts are never deleted, only deactivated
	AuditFields
	Balance decimal.Decimal `json:"balance"` // Running balance, signed per category convention
}
