package repositories

import (
	"context"

	"github.com/finsuite/ledger_engine/internal/core/domain"
)

// EntryReader defines read operations for journal entries.
type EntryReader interface {
	// FindEntryByID retrieves an entry with its lines.
	FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// FindEntryByReference retrieves an entry by its unique reference number.
	FindEntryByReference(ctx context.Context, referenceNumber string) (*domain.JournalEntry, error)

	// FindEntryByCreationKey retrieves the entry created under the given
	// client idempotency key. Returns apperrors.ErrNotFound when the key has
	// never been used.
	FindEntryByCreationKey(ctx context.Context, creationKey string) (*domain.JournalEntry, error)

	// FindEntriesByIDs retrieves multiple entries (with lines) keyed by ID.
	FindEntriesByIDs(ctx context.Context, entryIDs []string) (map[string]domain.JournalEntry, error)

	// ListEntries retrieves a paginated list of entries, newest first.
	ListEntries(ctx context.Context, limit int, offset int) ([]domain.JournalEntry, error)

	// CountUnpostedByPeriod counts entries referencing the period that are
	// still DRAFT, SUBMITTED or approved-but-unposted. Used to hard-block
	// period close.
	CountUnpostedByPeriod(ctx context.Context, periodID string) (int, error)
}

// EntryWriter defines write operations for journal entries.
// Status transitions to POSTED/REVERSED are excluded: those happen only
// through PostingRepository.PostAtomically.
type EntryWriter interface {
	// SaveEntry persists a new entry together with its lines.
	SaveEntry(ctx context.Context, entry domain.JournalEntry) error

	// UpdateEntry rewrites an entry's header, approval fields and lines.
	// Callers guarantee the entry has not been posted.
	UpdateEntry(ctx context.Context, entry domain.JournalEntry) error
}

// EntryRepositoryFacade combines all entry-related repository interfaces.
type EntryRepositoryFacade interface {
	EntryReader
	EntryWriter
}
