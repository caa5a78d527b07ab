package services

import (
	"context"

	"github.com/finsuite/ledger_engine/internal/core/domain"
	"github.com/finsuite/ledger_engine/internal/dto"
)

// BatchReaderSvc defines read operations for posting batches.
type BatchReaderSvc interface {
	// GetBatchByID retrieves a batch with its entry references.
	GetBatchByID(ctx context.Context, batchID string) (*domain.PostingBatch, error)

	// ListBatches retrieves a paginated list of batches.
	ListBatches(ctx context.Context, limit int, offset int) ([]domain.PostingBatch, error)
}

// BatchWriterSvc defines the batch approval workflow. Posting is owned by
// PostingSvcFacade; batch-level approval sits on top of entry approval.
type BatchWriterSvc interface {
	// CreateBatch creates a new OPEN batch with a generated batch number.
	CreateBatch(ctx context.Context, req dto.CreateBatchRequest, creatorUserID string) (*domain.PostingBatch, error)

	// AttachEntry adds an already-approved entry to an OPEN batch.
	AttachEntry(ctx context.Context, batchID string, entryID string, userID string) (*domain.PostingBatch, error)

	// SubmitBatch moves OPEN -> SUBMITTED.
	SubmitBatch(ctx context.Context, batchID string, userID string) (*domain.PostingBatch, error)

	// ApproveBatch approves a SUBMITTED batch, recording the approver.
	ApproveBatch(ctx context.Context, batchID string, approverID string) (*domain.PostingBatch, error)

	// RejectBatch rejects a SUBMITTED batch. Member entries keep their own approval.
	RejectBatch(ctx context.Context, batchID string, approverID string, reason string) (*domain.PostingBatch, error)
}

// BatchSvcFacade combines all batch-related service interfaces.
type BatchSvcFacade interface {
	BatchReaderSvc
	BatchWriterSvc
}
