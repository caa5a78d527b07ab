package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo: newPgxAccountRepository(dbPool),
		EntryRepo:   newPgxEntryRepository(dbPool),
		BatchRepo:   newPgxBatchRepository(dbPool),
		PeriodRepo:  newPgxPeriodRepository(dbPool),
		PostingRepo: newPgxPostingRepository(dbPool),
	}
}
