package memory

import (
	"sync"

	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
)

// Store is a mutex-guarded in-memory backing store shared by all repository
// implementations in this package. It is intended for tests and local
// development; the mutex makes the posting path serialize the same way row
// locks do in Postgres.
type Store struct {
	mu sync.RWMutex

	accounts map[string]domain.Account
	entries  map[string]domain.JournalEntry
	batches  map[string]domain.PostingBatch
	periods  map[string]domain.AccountingPeriod

	receiptsByKey   map[string]domain.PostingReceipt
	receiptsByEntry map[string]domain.PostingReceipt
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:        make(map[string]domain.Account),
		entries:         make(map[string]domain.JournalEntry),
		batches:         make(map[string]domain.PostingBatch),
		periods:         make(map[string]domain.AccountingPeriod),
		receiptsByKey:   make(map[string]domain.PostingReceipt),
		receiptsByEntry: make(map[string]domain.PostingReceipt),
	}
}

// NewRepositoryProvider wires every in-memory repository around one store.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo: NewAccountRepository(store),
		EntryRepo:   NewEntryRepository(store),
		BatchRepo:   NewBatchRepository(store),
		PeriodRepo:  NewPeriodRepository(store),
		PostingRepo: NewPostingRepository(store),
	}
}

// cloneEntry deep-copies an entry so callers never alias stored line slices.
func cloneEntry(e domain.JournalEntry) domain.JournalEntry {
	out := e
	out.Lines = make([]domain.JournalEntryLine, len(e.Lines))
	copy(out.Lines, e.Lines)
	if e.PeriodID != nil {
		v := *e.PeriodID
		out.PeriodID = &v
	}
	if e.BatchID != nil {
		v := *e.BatchID
		out.BatchID = &v
	}
	if e.ReversedByEntryID != nil {
		v := *e.ReversedByEntryID
		out.ReversedByEntryID = &v
	}
	if e.ReversesEntryID != nil {
		v := *e.ReversesEntryID
		out.ReversesEntryID = &v
	}
	return out
}

func cloneBatch(b domain.PostingBatch) domain.PostingBatch {
	out := b
	out.EntryIDs = make([]string, len(b.EntryIDs))
	copy(out.EntryIDs, b.EntryIDs)
	if b.ApprovedAt != nil {
		v := *b.ApprovedAt
		out.ApprovedAt = &v
	}
	return out
}

func clonePeriod(p domain.AccountingPeriod) domain.AccountingPeriod {
	out := p
	if p.ReopenedAt != nil {
		v := *p.ReopenedAt
		out.ReopenedAt = &v
	}
	return out
}

func cloneReceipt(r domain.PostingReceipt) domain.PostingReceipt {
	out := r
	out.AffectedAccountIDs = make([]string, len(r.AffectedAccountIDs))
	copy(out.AffectedAccountIDs, r.AffectedAccountIDs)
	if r.BatchID != nil {
		v := *r.BatchID
		out.BatchID = &v
	}
	return out
}
