package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
)

type PgxBatchRepository struct {
	BaseRepository
}

// newPgxBatchRepository creates a new repository for posting batch data.
func newPgxBatchRepository(pool *pgxpool.Pool) portsrepo.BatchRepositoryFacade {
	return &PgxBatchRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BatchRepositoryFacade = (*PgxBatchRepository)(nil)

const batchColumns = `batch_id, batch_number, batch_date, description, status, approved_by, approved_at, rejection_reason, created_at, created_by, last_updated_at, last_updated_by`

func scanBatch(row pgx.Row) (domain.PostingBatch, error) {
	var b domain.PostingBatch
	var approvedBy, rejectionReason sql.NullString
	err := row.Scan(
		&b.BatchID,
		&b.BatchNumber,
		&b.BatchDate,
		&b.Description,
		&b.Status,
		&approvedBy,
		&b.ApprovedAt,
		&rejectionReason,
		&b.CreatedAt,
		&b.CreatedBy,
		&b.LastUpdatedAt,
		&b.LastUpdatedBy,
	)
	if err != nil {
		return domain.PostingBatch{}, err
	}
	b.ApprovedBy = approvedBy.String
	b.RejectionReason = rejectionReason.String
	return b, nil
}

// loadEntryIDs fetches the member entry IDs of a batch in attach order.
func (r *PgxBatchRepository) loadEntryIDs(ctx context.Context, batchID string) ([]string, error) {
	query := `SELECT entry_id FROM posting_batch_entries WHERE batch_id = $1 ORDER BY position;`
	rows, err := r.Pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch entries: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan batch entry row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgxBatchRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.PostingBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM posting_batches WHERE batch_id = $1;`
	b, err := scanBatch(r.Pool.QueryRow(ctx, query, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("batch %s: %w", batchID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query batch %s: %w", batchID, err)
	}
	b.EntryIDs, err = r.loadEntryIDs(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PgxBatchRepository) FindBatchByNumber(ctx context.Context, batchNumber string) (*domain.PostingBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM posting_batches WHERE batch_number = $1;`
	b, err := scanBatch(r.Pool.QueryRow(ctx, query, batchNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("batch number %s: %w", batchNumber, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query batch by number %s: %w", batchNumber, err)
	}
	b.EntryIDs, err = r.loadEntryIDs(ctx, b.BatchID)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PgxBatchRepository) ListBatches(ctx context.Context, limit int, offset int) ([]domain.PostingBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM posting_batches ORDER BY created_at, batch_id LIMIT $1 OFFSET $2;`
	rows, err := r.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.PostingBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch row: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range batches {
		batches[i].EntryIDs, err = r.loadEntryIDs(ctx, batches[i].BatchID)
		if err != nil {
			return nil, err
		}
	}
	return batches, nil
}

func (r *PgxBatchRepository) SaveBatch(ctx context.Context, batch domain.PostingBatch) error {
	query := `
		INSERT INTO posting_batches (batch_id, batch_number, batch_date, description, status, approved_by, approved_at, rejection_reason, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := r.Pool.Exec(ctx, query,
		batch.BatchID,
		batch.BatchNumber,
		batch.BatchDate,
		batch.Description,
		batch.Status,
		nullString(batch.ApprovedBy),
		batch.ApprovedAt,
		nullString(batch.RejectionReason),
		batch.CreatedAt,
		batch.CreatedBy,
		batch.LastUpdatedAt,
		batch.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, "failed to save batch "+batch.BatchID)
	}
	return nil
}

func (r *PgxBatchRepository) UpdateBatch(ctx context.Context, batch domain.PostingBatch) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := updateBatchTx(ctx, tx, batch); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// updateBatchTx updates a batch header and rewrites its membership rows.
// Shared with the posting repository.
func updateBatchTx(ctx context.Context, tx pgx.Tx, batch domain.PostingBatch) error {
	query := `
		UPDATE posting_batches
		SET description = $2, status = $3, approved_by = $4, approved_at = $5, rejection_reason = $6, last_updated_at = $7, last_updated_by = $8
		WHERE batch_id = $1;
	`
	tag, err := tx.Exec(ctx, query,
		batch.BatchID,
		batch.Description,
		batch.Status,
		nullString(batch.ApprovedBy),
		batch.ApprovedAt,
		nullString(batch.RejectionReason),
		batch.LastUpdatedAt,
		batch.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, "failed to update batch "+batch.BatchID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("batch %s: %w", batch.BatchID, apperrors.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM posting_batch_entries WHERE batch_id = $1;`, batch.BatchID); err != nil {
		return fmt.Errorf("failed to clear batch membership %s: %w", batch.BatchID, err)
	}
	if len(batch.EntryIDs) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	insert := `INSERT INTO posting_batch_entries (batch_id, entry_id, position) VALUES ($1, $2, $3);`
	for i, entryID := range batch.EntryIDs {
		b.Queue(insert, batch.BatchID, entryID, i)
	}
	results := tx.SendBatch(ctx, b)
	defer results.Close()
	for range batch.EntryIDs {
		if _, err := results.Exec(); err != nil {
			return mapPgError(err, "failed to insert batch membership")
		}
	}
	return nil
}
