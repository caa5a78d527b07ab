package memory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
)

// PostingRepository applies posting units against the in-memory store. The
// store-wide mutex is the serialization point; all mutations are staged on
// copies and swapped in only once every step succeeds, so a failure anywhere
// leaves the store untouched.
type PostingRepository struct {
	store *Store

	// ApplyDeltaHook, when set, runs before each staged balance delta.
	// Returning an error aborts the unit without applying anything. Tests
	// use it to verify all-or-nothing behavior.
	ApplyDeltaHook func(accountID string) error
}

// NewPostingRepository creates an in-memory posting repository.
func NewPostingRepository(store *Store) *PostingRepository {
	return &PostingRepository{store: store}
}

var _ portsrepo.PostingRepository = (*PostingRepository)(nil)

func (r *PostingRepository) FindReceiptByKey(ctx context.Context, idempotencyKey string) (*domain.PostingReceipt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.receiptsByKey[idempotencyKey]
	if !ok {
		return nil, fmt.Errorf("idempotency key %s: %w", idempotencyKey, apperrors.ErrNotFound)
	}
	out := cloneReceipt(rec)
	return &out, nil
}

func (r *PostingRepository) FindReceiptByEntryID(ctx context.Context, entryID string) (*domain.PostingReceipt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.receiptsByEntry[entryID]
	if !ok {
		return nil, fmt.Errorf("receipt for entry %s: %w", entryID, apperrors.ErrNotFound)
	}
	out := cloneReceipt(rec)
	return &out, nil
}

func (r *PostingRepository) PostAtomically(ctx context.Context, unit portsrepo.PostingUnit) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, rec := range unit.Receipts {
		if _, exists := r.store.receiptsByKey[rec.IdempotencyKey]; exists {
			return fmt.Errorf("idempotency key %s: %w", rec.IdempotencyKey, apperrors.ErrDuplicate)
		}
		// One receipt per entry, matching the UNIQUE entry_id constraint.
		if _, exists := r.store.receiptsByEntry[rec.EntryID]; exists {
			return fmt.Errorf("entry %s already has a posting receipt: %w", rec.EntryID, apperrors.ErrDuplicate)
		}
	}

	// Stage balance updates on copies before committing anything.
	stagedAccounts := make(map[string]domain.Account, len(unit.BalanceDeltas))
	for accountID, delta := range unit.BalanceDeltas {
		acc, ok := r.store.accounts[accountID]
		if !ok {
			return fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
		}
		if r.ApplyDeltaHook != nil {
			if err := r.ApplyDeltaHook(accountID); err != nil {
				return err
			}
		}
		acc.Balance = acc.Balance.Add(delta)
		stagedAccounts[accountID] = acc
	}

	for _, e := range unit.Entries {
		r.store.entries[e.EntryID] = cloneEntry(e)
	}
	for _, e := range unit.ReversedEntries {
		r.store.entries[e.EntryID] = cloneEntry(e)
	}
	if unit.Batch != nil {
		r.store.batches[unit.Batch.BatchID] = cloneBatch(*unit.Batch)
	}
	for id, acc := range stagedAccounts {
		r.store.accounts[id] = acc
	}
	for _, rec := range unit.Receipts {
		stored := cloneReceipt(rec)
		r.store.receiptsByKey[rec.IdempotencyKey] = stored
		r.store.receiptsByEntry[rec.EntryID] = stored
	}
	return nil
}

// Balance returns the current balance of an account, zero if unknown.
// Test helper.
func (r *PostingRepository) Balance(accountID string) decimal.Decimal {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.accounts[accountID].Balance
}
