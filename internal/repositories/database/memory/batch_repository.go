package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
)

type batchRepository struct {
	store *Store
}

// NewBatchRepository creates an in-memory posting batch repository.
func NewBatchRepository(store *Store) portsrepo.BatchRepositoryFacade {
	return &batchRepository{store: store}
}

var _ portsrepo.BatchRepositoryFacade = (*batchRepository)(nil)

func (r *batchRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.PostingBatch, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	b, ok := r.store.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", batchID, apperrors.ErrNotFound)
	}
	out := cloneBatch(b)
	return &out, nil
}

func (r *batchRepository) FindBatchByNumber(ctx context.Context, batchNumber string) (*domain.PostingBatch, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, b := range r.store.batches {
		if b.BatchNumber == batchNumber {
			out := cloneBatch(b)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("batch number %s: %w", batchNumber, apperrors.ErrNotFound)
}

func (r *batchRepository) ListBatches(ctx context.Context, limit int, offset int) ([]domain.PostingBatch, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := make([]domain.PostingBatch, 0, len(r.store.batches))
	for _, b := range r.store.batches {
		all = append(all, cloneBatch(b))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].BatchID < all[j].BatchID
	})

	return paginate(all, limit, offset), nil
}

func (r *batchRepository) SaveBatch(ctx context.Context, batch domain.PostingBatch) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.batches[batch.BatchID]; exists {
		return fmt.Errorf("batch %s: %w", batch.BatchID, apperrors.ErrDuplicate)
	}
	r.store.batches[batch.BatchID] = cloneBatch(batch)
	return nil
}

func (r *batchRepository) UpdateBatch(ctx context.Context, batch domain.PostingBatch) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.batches[batch.BatchID]; !exists {
		return fmt.Errorf("batch %s: %w", batch.BatchID, apperrors.ErrNotFound)
	}
	r.store.batches[batch.BatchID] = cloneBatch(batch)
	return nil
}
