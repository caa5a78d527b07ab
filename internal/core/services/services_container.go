package services

import (
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/finsuite/ledger_engine/internal/core/ports/services"
	"github.com/finsuite/ledger_engine/internal/events"
	"github.com/finsuite/ledger_engine/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, publisher events.Publisher) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Account service first since entry validation depends on it
	container.Account = NewAccountService(repos.AccountRepo)

	container.Entry = NewEntryService(repos.EntryRepo, container.Account, repos.PeriodRepo, cfg.BalanceTolerance)
	container.Batch = NewBatchService(repos.BatchRepo, repos.EntryRepo)
	container.Period = NewPeriodService(repos.PeriodRepo, repos.EntryRepo)

	// The posting coordinator implements both the posting and reversal facades
	posting := NewPostingService(
		repos.EntryRepo,
		repos.BatchRepo,
		repos.PeriodRepo,
		repos.AccountRepo,
		repos.PostingRepo,
		publisher,
		cfg.BalanceTolerance,
	)
	container.Posting = posting
	container.Reversal = posting

	return container
}
