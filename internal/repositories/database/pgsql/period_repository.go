package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
)

type PgxPeriodRepository struct {
	BaseRepository
}

// newPgxPeriodRepository creates a new repository for accounting period data.
func newPgxPeriodRepository(pool *pgxpool.Pool) portsrepo.PeriodRepositoryFacade {
	return &PgxPeriodRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PeriodRepositoryFacade = (*PgxPeriodRepository)(nil)

const periodColumns = `period_id, name, start_date, end_date, status, reopened_at, reopen_justification, created_at, created_by, last_updated_at, last_updated_by`

func scanPeriod(row pgx.Row) (domain.AccountingPeriod, error) {
	var p domain.AccountingPeriod
	var justification sql.NullString
	err := row.Scan(
		&p.PeriodID,
		&p.Name,
		&p.StartDate,
		&p.EndDate,
		&p.Status,
		&p.ReopenedAt,
		&justification,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	if err != nil {
		return domain.AccountingPeriod{}, err
	}
	p.ReopenJustification = justification.String
	return p, nil
}

func (r *PgxPeriodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.AccountingPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM accounting_periods WHERE period_id = $1;`
	p, err := scanPeriod(r.Pool.QueryRow(ctx, query, periodID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("period %s: %w", periodID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query period %s: %w", periodID, err)
	}
	return &p, nil
}

func (r *PgxPeriodRepository) FindPeriodForDate(ctx context.Context, date time.Time) (*domain.AccountingPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM accounting_periods WHERE start_date <= $1 AND end_date >= $1 LIMIT 1;`
	p, err := scanPeriod(r.Pool.QueryRow(ctx, query, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no period contains %s: %w", date.Format("2006-01-02"), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query period for date: %w", err)
	}
	return &p, nil
}

func (r *PgxPeriodRepository) ListPeriods(ctx context.Context) ([]domain.AccountingPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM accounting_periods ORDER BY start_date;`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	defer rows.Close()

	var periods []domain.AccountingPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan period row: %w", err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *PgxPeriodRepository) SavePeriod(ctx context.Context, period domain.AccountingPeriod) error {
	query := `
		INSERT INTO accounting_periods (period_id, name, start_date, end_date, status, reopened_at, reopen_justification, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.Pool.Exec(ctx, query,
		period.PeriodID,
		period.Name,
		period.StartDate,
		period.EndDate,
		period.Status,
		period.ReopenedAt,
		nullString(period.ReopenJustification),
		period.CreatedAt,
		period.CreatedBy,
		period.LastUpdatedAt,
		period.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, "failed to save period "+period.PeriodID)
	}
	return nil
}

func (r *PgxPeriodRepository) UpdatePeriod(ctx context.Context, period domain.AccountingPeriod) error {
	query := `
		UPDATE accounting_periods
		SET name = $2, status = $3, reopened_at = $4, reopen_justification = $5, last_updated_at = $6, last_updated_by = $7
		WHERE period_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query,
		period.PeriodID,
		period.Name,
		period.Status,
		period.ReopenedAt,
		nullString(period.ReopenJustification),
		period.LastUpdatedAt,
		period.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, "failed to update period "+period.PeriodID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("period %s: %w", period.PeriodID, apperrors.ErrNotFound)
	}
	return nil
}
