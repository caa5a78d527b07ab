package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
)

type periodRepository struct {
	store *Store
}

// NewPeriodRepository creates an in-memory accounting period repository.
func NewPeriodRepository(store *Store) portsrepo.PeriodRepositoryFacade {
	return &periodRepository{store: store}
}

var _ portsrepo.PeriodRepositoryFacade = (*periodRepository)(nil)

func (r *periodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.AccountingPeriod, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.periods[periodID]
	if !ok {
		return nil, fmt.Errorf("period %s: %w", periodID, apperrors.ErrNotFound)
	}
	out := clonePeriod(p)
	return &out, nil
}

func (r *periodRepository) FindPeriodForDate(ctx context.Context, date time.Time) (*domain.AccountingPeriod, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, p := range r.store.periods {
		if p.Contains(date) {
			out := clonePeriod(p)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("no period contains %s: %w", date.Format("2006-01-02"), apperrors.ErrNotFound)
}

func (r *periodRepository) ListPeriods(ctx context.Context) ([]domain.AccountingPeriod, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := make([]domain.AccountingPeriod, 0, len(r.store.periods))
	for _, p := range r.store.periods {
		all = append(all, clonePeriod(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartDate.Before(all[j].StartDate) })
	return all, nil
}

func (r *periodRepository) SavePeriod(ctx context.Context, period domain.AccountingPeriod) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.periods[period.PeriodID]; exists {
		return fmt.Errorf("period %s: %w", period.PeriodID, apperrors.ErrDuplicate)
	}
	r.store.periods[period.PeriodID] = clonePeriod(period)
	return nil
}

func (r *periodRepository) UpdatePeriod(ctx context.Context, period domain.AccountingPeriod) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.periods[period.PeriodID]; !exists {
		return fmt.Errorf("period %s: %w", period.PeriodID, apperrors.ErrNotFound)
	}
	r.store.periods[period.PeriodID] = clonePeriod(period)
	return nil
}
