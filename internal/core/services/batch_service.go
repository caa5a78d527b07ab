package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/finsuite/ledger_engine/internal/core/ports/services"
	"github.com/finsuite/ledger_engine/internal/dto"
	"github.com/finsuite/ledger_engine/internal/middleware"
)

var (
	ErrBatchNotFound            = errors.New("posting batch not found")
	ErrEntryNotApprovedForBatch = errors.New("entry must be approved before it can join a batch")
)

// batchService owns the batch approval workflow. Batches group entries that
// already passed entry-level approval; batch approval is a second,
// independent gate on top (two-person rule).
type batchService struct {
	batchRepo portsrepo.BatchRepositoryFacade
	entryRepo portsrepo.EntryReader
}

// NewBatchService creates a new posting batch service.
func NewBatchService(batchRepo portsrepo.BatchRepositoryFacade, entryRepo portsrepo.EntryReader) portssvc.BatchSvcFacade {
	return &batchService{batchRepo: batchRepo, entryRepo: entryRepo}
}

var _ portssvc.BatchSvcFacade = (*batchService)(nil)

// CreateBatch opens a new batch with a generated batch number.
func (s *batchService) CreateBatch(ctx context.Context, req dto.CreateBatchRequest, creatorUserID string) (*domain.PostingBatch, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	batchID := uuid.NewString()
	batch := domain.PostingBatch{
		BatchID:     batchID,
		BatchNumber: fmt.Sprintf("BATCH-%s-%s", req.BatchDate.Format("2006-01-02"), batchID[:8]),
		BatchDate:   req.BatchDate,
		Description: req.Description,
		Status:      domain.BatchOpen,
		AuditFields: domain.NewAuditFields(creatorUserID, now),
	}

	if err := s.batchRepo.SaveBatch(ctx, batch); err != nil {
		logger.Error("Failed to save posting batch", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save posting batch: %w", err)
	}

	logger.Info("Posting batch created", slog.String("batch_id", batch.BatchID), slog.String("batch_number", batch.BatchNumber))
	return &batch, nil
}

// GetBatchByID retrieves a batch with its entry references.
func (s *batchService) GetBatchByID(ctx context.Context, batchID string) (*domain.PostingBatch, error) {
	batch, err := s.batchRepo.FindBatchByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrBatchNotFound, batchID)
		}
		return nil, fmt.Errorf("failed to find batch %s: %w", batchID, err)
	}
	return batch, nil
}

// ListBatches retrieves a paginated list of batches.
func (s *batchService) ListBatches(ctx context.Context, limit int, offset int) ([]domain.PostingBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	batches, err := s.batchRepo.ListBatches(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

// AttachEntry adds an entry to an OPEN batch. The entry must already carry
// its own approval; batches never substitute for entry-level approval.
func (s *batchService) AttachEntry(ctx context.Context, batchID string, entryID string, userID string) (*domain.PostingBatch, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	batch, err := s.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	entry, err := s.entryRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrEntryNotFound, entryID)
		}
		return nil, fmt.Errorf("failed to find entry %s: %w", entryID, err)
	}
	if entry.ApprovalStatus != domain.ApprovalApproved {
		return nil, fmt.Errorf("%w: entry %s has approval status %s", ErrEntryNotApprovedForBatch, entryID, entry.ApprovalStatus)
	}

	if err := batch.AttachEntry(entryID); err != nil {
		return nil, err
	}

	batch.Touch(userID, time.Now().UTC())
	if err := s.batchRepo.UpdateBatch(ctx, *batch); err != nil {
		return nil, fmt.Errorf("failed to update batch %s: %w", batchID, err)
	}

	logger.Info("Entry attached to batch", slog.String("batch_id", batchID), slog.String("entry_id", entryID))
	return batch, nil
}

// SubmitBatch moves an OPEN batch to SUBMITTED.
func (s *batchService) SubmitBatch(ctx context.Context, batchID string, userID string) (*domain.PostingBatch, error) {
	batch, err := s.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if err := batch.MarkSubmitted(userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.batchRepo.UpdateBatch(ctx, *batch); err != nil {
		return nil, fmt.Errorf("failed to update batch %s: %w", batchID, err)
	}
	return batch, nil
}

// ApproveBatch approves a SUBMITTED batch.
func (s *batchService) ApproveBatch(ctx context.Context, batchID string, approverID string) (*domain.PostingBatch, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	batch, err := s.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if err := batch.MarkApproved(approverID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.batchRepo.UpdateBatch(ctx, *batch); err != nil {
		return nil, fmt.Errorf("failed to update batch %s: %w", batchID, err)
	}

	logger.Info("Posting batch approved", slog.String("batch_id", batchID), slog.String("approver", approverID))
	return batch, nil
}

// RejectBatch rejects a SUBMITTED batch. Member entries keep their own
// Approved status; only batch posting is blocked.
func (s *batchService) RejectBatch(ctx context.Context, batchID string, approverID string, reason string) (*domain.PostingBatch, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	batch, err := s.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if err := batch.MarkRejected(approverID, reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.batchRepo.UpdateBatch(ctx, *batch); err != nil {
		return nil, fmt.Errorf("failed to update batch %s: %w", batchID, err)
	}

	logger.Info("Posting batch rejected", slog.String("batch_id", batchID), slog.String("approver", approverID), slog.String("reason", reason))
	return batch, nil
}
