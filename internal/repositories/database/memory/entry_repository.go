package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
)

type entryRepository struct {
	store *Store
}

// NewEntryRepository creates an in-memory journal entry repository.
func NewEntryRepository(store *Store) portsrepo.EntryRepositoryFacade {
	return &entryRepository{store: store}
}

var _ portsrepo.EntryRepositoryFacade = (*entryRepository)(nil)

func (r *entryRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", entryID, apperrors.ErrNotFound)
	}
	out := cloneEntry(e)
	return &out, nil
}

func (r *entryRepository) FindEntryByReference(ctx context.Context, referenceNumber string) (*domain.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, e := range r.store.entries {
		if e.ReferenceNumber == referenceNumber {
			out := cloneEntry(e)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("reference %s: %w", referenceNumber, apperrors.ErrNotFound)
}

func (r *entryRepository) FindEntryByCreationKey(ctx context.Context, creationKey string) (*domain.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, e := range r.store.entries {
		if e.CreationKey != "" && e.CreationKey == creationKey {
			out := cloneEntry(e)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("creation key %s: %w", creationKey, apperrors.ErrNotFound)
}

func (r *entryRepository) FindEntriesByIDs(ctx context.Context, entryIDs []string) (map[string]domain.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make(map[string]domain.JournalEntry, len(entryIDs))
	for _, id := range entryIDs {
		if e, ok := r.store.entries[id]; ok {
			out[id] = cloneEntry(e)
		}
	}
	return out, nil
}

func (r *entryRepository) ListEntries(ctx context.Context, limit int, offset int) ([]domain.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := make([]domain.JournalEntry, 0, len(r.store.entries))
	for _, e := range r.store.entries {
		all = append(all, cloneEntry(e))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].EntryID < all[j].EntryID
	})

	return paginate(all, limit, offset), nil
}

func (r *entryRepository) CountUnpostedByPeriod(ctx context.Context, periodID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, e := range r.store.entries {
		if e.PeriodID == nil || *e.PeriodID != periodID {
			continue
		}
		if e.Status == domain.EntryDraft || e.Status == domain.EntrySubmitted {
			count++
		}
	}
	return count, nil
}

func (r *entryRepository) SaveEntry(ctx context.Context, entry domain.JournalEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.entries[entry.EntryID]; exists {
		return fmt.Errorf("entry %s: %w", entry.EntryID, apperrors.ErrDuplicate)
	}
	for _, e := range r.store.entries {
		if e.ReferenceNumber == entry.ReferenceNumber {
			return fmt.Errorf("reference %s: %w", entry.ReferenceNumber, apperrors.ErrDuplicate)
		}
		if entry.CreationKey != "" && e.CreationKey == entry.CreationKey {
			return fmt.Errorf("creation key %s: %w", entry.CreationKey, apperrors.ErrDuplicate)
		}
	}
	r.store.entries[entry.EntryID] = cloneEntry(entry)
	return nil
}

func (r *entryRepository) UpdateEntry(ctx context.Context, entry domain.JournalEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.entries[entry.EntryID]; !exists {
		return fmt.Errorf("entry %s: %w", entry.EntryID, apperrors.ErrNotFound)
	}
	r.store.entries[entry.EntryID] = cloneEntry(entry)
	return nil
}
