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

type accountRepository struct {
	store *Store
}

// NewAccountRepository creates an in-memory account repository.
func NewAccountRepository(store *Store) portsrepo.AccountRepositoryFacade {
	return &accountRepository{store: store}
}

var _ portsrepo.AccountRepositoryFacade = (*accountRepository)(nil)

func (r *accountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acc, ok := r.store.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	return &acc, nil
}

func (r *accountRepository) FindAccountByCode(ctx context.Context, accountCode string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, acc := range r.store.accounts {
		if acc.AccountCode == accountCode {
			a := acc
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account code %s: %w", accountCode, apperrors.ErrNotFound)
}

func (r *accountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		if acc, ok := r.store.accounts[id]; ok {
			out[id] = acc
		}
	}
	return out, nil
}

func (r *accountRepository) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := make([]domain.Account, 0, len(r.store.accounts))
	for _, acc := range r.store.accounts {
		all = append(all, acc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AccountCode < all[j].AccountCode })

	return paginate(all, limit, offset), nil
}

func (r *accountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.accounts[account.AccountID]; exists {
		return fmt.Errorf("account %s: %w", account.AccountID, apperrors.ErrDuplicate)
	}
	for _, acc := range r.store.accounts {
		if acc.AccountCode == account.AccountCode {
			return fmt.Errorf("account code %s: %w", account.AccountCode, apperrors.ErrDuplicate)
		}
	}
	r.store.accounts[account.AccountID] = account
	return nil
}

func (r *accountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.accounts[account.AccountID]; !exists {
		return fmt.Errorf("account %s: %w", account.AccountID, apperrors.ErrNotFound)
	}
	r.store.accounts[account.AccountID] = account
	return nil
}

func (r *accountRepository) DeactivateAccount(ctx context.Context, accountID string, userID string, now time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	acc, exists := r.store.accounts[accountID]
	if !exists {
		return fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	acc.IsActive = false
	acc.Touch(userID, now)
	r.store.accounts[accountID] = acc
	return nil
}

// paginate applies limit/offset to a sorted slice.
func paginate[T any](all []T, limit int, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]T, end-offset)
	copy(out, all[offset:end])
	return out
}
