package services

import (
	"context"
	"time"

	"github.com/finsuite/ledger_engine/internal/core/domain"
)

// PostingSvcFacade is the posting coordinator: the only component allowed to
// transition entries to POSTED and to mutate account balances. Both methods
// are idempotent per key: a key that already produced a receipt returns the
// prior result without re-applying balance deltas.
type PostingSvcFacade interface {
	// PostEntry posts one approved entry. An empty idempotency key derives
	// one from the entry ID.
	PostEntry(ctx context.Context, entryID string, idempotencyKey string, userID string) (*domain.PostingReceipt, error)

	// PostBatch posts every entry of an approved batch as one atomic unit.
	// If any member fails validation the whole batch aborts with zero
	// balance changes.
	PostBatch(ctx context.Context, batchID string, idempotencyKey string, userID string) ([]domain.PostingReceipt, error)
}

// ReversalSvcFacade creates the mirror entry for a posted entry and runs it
// through the full posting pipeline.
type ReversalSvcFacade interface {
	// ReverseEntry builds and posts the offsetting entry for a POSTED entry,
	// linking original and reversal both ways. The original's lines are
	// never mutated.
	ReverseEntry(ctx context.Context, entryID string, reversalDate time.Time, reason string, userID string) (*domain.JournalEntry, error)
}
