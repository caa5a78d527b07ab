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

type PgxEntryRepository struct {
	BaseRepository
}

// newPgxEntryRepository creates a new repository for journal entry data.
func newPgxEntryRepository(pool *pgxpool.Pool) portsrepo.EntryRepositoryFacade {
	return &PgxEntryRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.EntryRepositoryFacade = (*PgxEntryRepository)(nil)

const entryColumns = `entry_id, entry_date, reference_number, source, description, status, approval_status, approved_by, approved_at, rejection_reason, period_id, batch_id, reversed_by_entry_id, reverses_entry_id, posted_to_reopened_period, creation_key, created_at, created_by, last_updated_at, last_updated_by`

func scanEntry(row pgx.Row) (domain.JournalEntry, error) {
	var e domain.JournalEntry
	var approvedBy, rejectionReason, creationKey sql.NullString
	err := row.Scan(
		&e.EntryID,
		&e.Date,
		&e.ReferenceNumber,
		&e.Source,
		&e.Description,
		&e.Status,
		&e.ApprovalStatus,
		&approvedBy,
		&e.ApprovedAt,
		&rejectionReason,
		&e.PeriodID,
		&e.BatchID,
		&e.ReversedByEntryID,
		&e.ReversesEntryID,
		&e.PostedToReopenedPeriod,
		&creationKey,
		&e.CreatedAt,
		&e.CreatedBy,
		&e.LastUpdatedAt,
		&e.LastUpdatedBy,
	)
	if err != nil {
		return domain.JournalEntry{}, err
	}
	e.ApprovedBy = approvedBy.String
	e.RejectionReason = rejectionReason.String
	e.CreationKey = creationKey.String
	return e, nil
}

// loadLines fetches the lines of the given entries in one query, keyed by entry ID.
func (r *PgxEntryRepository) loadLines(ctx context.Context, entryIDs []string) (map[string][]domain.JournalEntryLine, error) {
	if len(entryIDs) == 0 {
		return map[string][]domain.JournalEntryLine{}, nil
	}
	query := `
		SELECT line_id, entry_id, account_id, debit, credit, memo
		FROM journal_entry_lines
		WHERE entry_id = ANY($1)
		ORDER BY line_id;
	`
	rows, err := r.Pool.Query(ctx, query, entryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.JournalEntryLine, len(entryIDs))
	for rows.Next() {
		var l domain.JournalEntryLine
		var memo sql.NullString
		if err := rows.Scan(&l.LineID, &l.EntryID, &l.AccountID, &l.Debit, &l.Credit, &memo); err != nil {
			return nil, fmt.Errorf("failed to scan entry line: %w", err)
		}
		l.Memo = memo.String
		out[l.EntryID] = append(out[l.EntryID], l)
	}
	return out, rows.Err()
}

func (r *PgxEntryRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE entry_id = $1;`
	e, err := scanEntry(r.Pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entry %s: %w", entryID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query entry %s: %w", entryID, err)
	}
	lines, err := r.loadLines(ctx, []string{entryID})
	if err != nil {
		return nil, err
	}
	e.Lines = lines[entryID]
	return &e, nil
}

func (r *PgxEntryRepository) FindEntryByReference(ctx context.Context, referenceNumber string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE reference_number = $1;`
	e, err := scanEntry(r.Pool.QueryRow(ctx, query, referenceNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reference %s: %w", referenceNumber, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query entry by reference %s: %w", referenceNumber, err)
	}
	lines, err := r.loadLines(ctx, []string{e.EntryID})
	if err != nil {
		return nil, err
	}
	e.Lines = lines[e.EntryID]
	return &e, nil
}

func (r *PgxEntryRepository) FindEntryByCreationKey(ctx context.Context, creationKey string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE creation_key = $1;`
	e, err := scanEntry(r.Pool.QueryRow(ctx, query, creationKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("creation key %s: %w", creationKey, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query entry by creation key: %w", err)
	}
	lines, err := r.loadLines(ctx, []string{e.EntryID})
	if err != nil {
		return nil, err
	}
	e.Lines = lines[e.EntryID]
	return &e, nil
}

func (r *PgxEntryRepository) FindEntriesByIDs(ctx context.Context, entryIDs []string) (map[string]domain.JournalEntry, error) {
	if len(entryIDs) == 0 {
		return map[string]domain.JournalEntry{}, nil
	}
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE entry_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, entryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries by IDs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.JournalEntry, len(entryIDs))
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		out[e.EntryID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.loadLines(ctx, entryIDs)
	if err != nil {
		return nil, err
	}
	for id, e := range out {
		e.Lines = lines[id]
		out[id] = e
	}
	return out, nil
}

func (r *PgxEntryRepository) ListEntries(ctx context.Context, limit int, offset int) ([]domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries ORDER BY created_at, entry_id LIMIT $1 OFFSET $2;`
	rows, err := r.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	ids := make([]string, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, e)
		ids = append(ids, e.EntryID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Lines = lines[entries[i].EntryID]
	}
	return entries, nil
}

func (r *PgxEntryRepository) CountUnpostedByPeriod(ctx context.Context, periodID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM journal_entries
		WHERE period_id = $1 AND status IN ('DRAFT', 'SUBMITTED');
	`
	var count int
	if err := r.Pool.QueryRow(ctx, query, periodID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unposted entries for period %s: %w", periodID, err)
	}
	return count, nil
}

func (r *PgxEntryRepository) SaveEntry(ctx context.Context, entry domain.JournalEntry) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := insertEntryTx(ctx, tx, entry); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

func (r *PgxEntryRepository) UpdateEntry(ctx context.Context, entry domain.JournalEntry) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := updateEntryHeaderTx(ctx, tx, entry); err != nil {
		return err
	}

	// Lines are editable only while DRAFT; replace them wholesale.
	if entry.Status == domain.EntryDraft {
		if _, err := tx.Exec(ctx, `DELETE FROM journal_entry_lines WHERE entry_id = $1;`, entry.EntryID); err != nil {
			return fmt.Errorf("failed to clear lines of entry %s: %w", entry.EntryID, err)
		}
		if err := insertLinesTx(ctx, tx, entry.Lines); err != nil {
			return err
		}
	}
	return r.Commit(ctx, tx)
}

// insertEntryTx inserts an entry header and its lines inside a transaction.
// Shared with the posting repository for reversing entries.
func insertEntryTx(ctx context.Context, tx pgx.Tx, entry domain.JournalEntry) error {
	query := `
		INSERT INTO journal_entries (entry_id, entry_date, reference_number, source, description, status, approval_status, approved_by, approved_at, rejection_reason, period_id, batch_id, reversed_by_entry_id, reverses_entry_id, posted_to_reopened_period, creation_key, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);
	`
	_, err := tx.Exec(ctx, query,
		entry.EntryID,
		entry.Date,
		entry.ReferenceNumber,
		entry.Source,
		entry.Description,
		entry.Status,
		entry.ApprovalStatus,
		nullString(entry.ApprovedBy),
		entry.ApprovedAt,
		nullString(entry.RejectionReason),
		entry.PeriodID,
		entry.BatchID,
		entry.ReversedByEntryID,
		entry.ReversesEntryID,
		entry.PostedToReopenedPeriod,
		nullString(entry.CreationKey),
		entry.CreatedAt,
		entry.CreatedBy,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, "failed to insert entry "+entry.EntryID)
	}
	return insertLinesTx(ctx, tx, entry.Lines)
}

func insertLinesTx(ctx context.Context, tx pgx.Tx, lines []domain.JournalEntryLine) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO journal_entry_lines (line_id, entry_id, account_id, debit, credit, memo)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	for _, l := range lines {
		batch.Queue(query, l.LineID, l.EntryID, l.AccountID, l.Debit, l.Credit, nullString(l.Memo))
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range lines {
		if _, err := results.Exec(); err != nil {
			return mapPgError(err, "failed to insert entry line")
		}
	}
	return nil
}

// updateEntryHeaderTx updates the mutable header columns of an entry.
func updateEntryHeaderTx(ctx context.Context, tx pgx.Tx, entry domain.JournalEntry) error {
	query := `
		UPDATE journal_entries
		SET entry_date = $2, description = $3, status = $4, approval_status = $5, approved_by = $6, approved_at = $7, rejection_reason = $8, period_id = $9, batch_id = $10, reversed_by_entry_id = $11, reverses_entry_id = $12, posted_to_reopened_period = $13, last_updated_at = $14, last_updated_by = $15
		WHERE entry_id = $1;
	`
	tag, err := tx.Exec(ctx, query,
		entry.EntryID,
		entry.Date,
		entry.Description,
		entry.Status,
		entry.ApprovalStatus,
		nullString(entry.ApprovedBy),
		entry.ApprovedAt,
		nullString(entry.RejectionReason),
		entry.PeriodID,
		entry.BatchID,
		entry.ReversedByEntryID,
		entry.ReversesEntryID,
		entry.PostedToReopenedPeriod,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, "failed to update entry "+entry.EntryID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entry %s: %w", entry.EntryID, apperrors.ErrNotFound)
	}
	return nil
}
