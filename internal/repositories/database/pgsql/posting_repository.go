package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
)

type PgxPostingRepository struct {
	BaseRepository
}

// newPgxPostingRepository creates the repository that owns the posting
// transaction.
func newPgxPostingRepository(pool *pgxpool.Pool) portsrepo.PostingRepository {
	return &PgxPostingRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PostingRepository = (*PgxPostingRepository)(nil)

const receiptColumns = `idempotency_key, entry_id, batch_id, affected_account_ids, posted_at, posted_by`

func scanReceipt(row pgx.Row) (domain.PostingReceipt, error) {
	var rec domain.PostingReceipt
	err := row.Scan(
		&rec.IdempotencyKey,
		&rec.EntryID,
		&rec.BatchID,
		&rec.AffectedAccountIDs,
		&rec.PostedAt,
		&rec.PostedBy,
	)
	return rec, err
}

func (r *PgxPostingRepository) FindReceiptByKey(ctx context.Context, idempotencyKey string) (*domain.PostingReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM posting_receipts WHERE idempotency_key = $1;`
	rec, err := scanReceipt(r.Pool.QueryRow(ctx, query, idempotencyKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("idempotency key %s: %w", idempotencyKey, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query posting receipt: %w", err)
	}
	return &rec, nil
}

func (r *PgxPostingRepository) FindReceiptByEntryID(ctx context.Context, entryID string) (*domain.PostingReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM posting_receipts WHERE entry_id = $1;`
	rec, err := scanReceipt(r.Pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("receipt for entry %s: %w", entryID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query posting receipt: %w", err)
	}
	return &rec, nil
}

// PostAtomically commits the unit in one database transaction. Account rows
// are locked FOR UPDATE in sorted ID order so two concurrent posts touching
// the same accounts serialize instead of deadlocking. Receipts go in first;
// their unique key turns a concurrent duplicate post into ErrDuplicate before
// any balance moves.
func (r *PgxPostingRepository) PostAtomically(ctx context.Context, unit portsrepo.PostingUnit) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	insertReceipt := `
		INSERT INTO posting_receipts (idempotency_key, entry_id, batch_id, affected_account_ids, posted_at, posted_by)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	for _, rec := range unit.Receipts {
		if _, err := tx.Exec(ctx, insertReceipt,
			rec.IdempotencyKey,
			rec.EntryID,
			rec.BatchID,
			rec.AffectedAccountIDs,
			rec.PostedAt,
			rec.PostedBy,
		); err != nil {
			return mapPgError(err, "failed to insert posting receipt "+rec.IdempotencyKey)
		}
	}

	accountIDs := make([]string, 0, len(unit.BalanceDeltas))
	for id := range unit.BalanceDeltas {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)

	lockQuery := `SELECT account_id FROM accounts WHERE account_id = ANY($1) ORDER BY account_id FOR UPDATE;`
	rows, err := tx.Query(ctx, lockQuery, accountIDs)
	if err != nil {
		return mapPgError(err, "failed to lock accounts for update")
	}
	locked := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan locked account: %w", err)
		}
		locked++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return mapPgError(err, "failed to lock accounts for update")
	}
	if locked != len(accountIDs) {
		return fmt.Errorf("%w: %d of %d accounts missing during posting", apperrors.ErrNotFound, len(accountIDs)-locked, len(accountIDs))
	}

	updateBalance := `UPDATE accounts SET balance = balance + $2, last_updated_at = NOW(), last_updated_by = $3 WHERE account_id = $1;`
	actor := ""
	if len(unit.Receipts) > 0 {
		actor = unit.Receipts[0].PostedBy
	}
	for _, id := range accountIDs {
		if _, err := tx.Exec(ctx, updateBalance, id, unit.BalanceDeltas[id], actor); err != nil {
			return mapPgError(err, "failed to update balance of account "+id)
		}
	}

	for _, entry := range unit.Entries {
		if err := upsertEntryTx(ctx, tx, entry); err != nil {
			return err
		}
	}
	for _, entry := range unit.ReversedEntries {
		if err := updateEntryHeaderTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	if unit.Batch != nil {
		if err := updateBatchTx(ctx, tx, *unit.Batch); err != nil {
			return err
		}
	}

	return r.Commit(ctx, tx)
}

// upsertEntryTx updates an existing entry header or inserts header and lines
// for an entry created inside the posting transaction (a reversing entry).
func upsertEntryTx(ctx context.Context, tx pgx.Tx, entry domain.JournalEntry) error {
	err := updateEntryHeaderTx(ctx, tx, entry)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return insertEntryTx(ctx, tx, entry)
}
