package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/finsuite/ledger_engine/internal/core/domain"
)

// PostingUnit is everything one posting attempt commits as a single atomic
// unit: the entries with their new statuses, the optional batch, the net
// balance deltas per account, and one receipt per entry for idempotency.
// ReversedEntries carries originals transitioned to REVERSED alongside the
// reversing entry that offsets them.
type PostingUnit struct {
	Entries         []domain.JournalEntry
	ReversedEntries []domain.JournalEntry
	Batch           *domain.PostingBatch
	BalanceDeltas   map[string]decimal.Decimal
	Receipts        []domain.PostingReceipt
}

// PostingRepository is the serialization point for all balance mutations.
// Implementations must guarantee that PostAtomically is all-or-nothing and
// that concurrent calls touching the same accounts serialize (row locks in
// Postgres, a store-wide mutex in memory), so the final balance of every
// account equals the sum of all applied deltas in some total order.
type PostingRepository interface {
	// FindReceiptByKey retrieves a prior posting receipt by idempotency key.
	// Returns apperrors.ErrNotFound when the key has never been used.
	FindReceiptByKey(ctx context.Context, idempotencyKey string) (*domain.PostingReceipt, error)

	// FindReceiptByEntryID retrieves the receipt of an already-posted entry.
	FindReceiptByEntryID(ctx context.Context, entryID string) (*domain.PostingReceipt, error)

	// PostAtomically applies the unit: updates entry rows (status, period
	// audit flags, reversal links), the batch row if present, account
	// balances, and inserts the receipts. Either everything commits or
	// nothing does. A duplicate idempotency key fails with
	// apperrors.ErrDuplicate without applying anything.
	PostAtomically(ctx context.Context, unit PostingUnit) error
}
