package repositories

import (
	"context"

	"github.com/finsuite/ledger_engine/internal/core/domain"
)

// BatchReader defines read operations for posting batches.
type BatchReader interface {
	// FindBatchByID retrieves a batch with its entry references.
	FindBatchByID(ctx context.Context, batchID string) (*domain.PostingBatch, error)

	// FindBatchByNumber retrieves a batch by its unique batch number.
	FindBatchByNumber(ctx context.Context, batchNumber string) (*domain.PostingBatch, error)

	// ListBatches retrieves a paginated list of batches, newest first.
	ListBatches(ctx context.Context, limit int, offset int) ([]domain.PostingBatch, error)
}

// BatchWriter defines write operations for posting batches.
type BatchWriter interface {
	// SaveBatch persists a new batch.
	SaveBatch(ctx context.Context, batch domain.PostingBatch) error

	// UpdateBatch rewrites a batch's status, approval fields and entry references.
	UpdateBatch(ctx context.Context, batch domain.PostingBatch) error
}

// BatchRepositoryFacade combines all batch-related repository interfaces.
type BatchRepositoryFacade interface {
	BatchReader
	BatchWriter
}
