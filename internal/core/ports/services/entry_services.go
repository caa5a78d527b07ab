package services

import (
	"context"

	"github.com/finsuite/ledger_engine/internal/core/domain"
	"github.com/finsuite/ledger_engine/internal/dto"
)

// EntryReaderSvc defines read operations for journal entries.
type EntryReaderSvc interface {
	// GetEntryByID retrieves an entry with its lines.
	GetEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// ListEntries retrieves a paginated list of entries.
	ListEntries(ctx context.Context, limit int, offset int) ([]domain.JournalEntry, error)
}

// EntryWriterSvc defines write operations on the journal entry lifecycle up
// to approval. Posting is owned by PostingSvcFacade.
type EntryWriterSvc interface {
	// CreateEntry validates and persists a new DRAFT entry.
	CreateEntry(ctx context.Context, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error)

	// AddLine appends a line to a DRAFT entry.
	AddLine(ctx context.Context, entryID string, req dto.CreateLineRequest, userID string) (*domain.JournalEntry, error)

	// RemoveLine deletes a line from a DRAFT entry.
	RemoveLine(ctx context.Context, entryID string, lineID string, userID string) (*domain.JournalEntry, error)

	// SubmitEntry re-validates the balance invariant and moves DRAFT -> SUBMITTED.
	SubmitEntry(ctx context.Context, entryID string, userID string) (*domain.JournalEntry, error)

	// ApproveEntry approves a SUBMITTED entry, recording the approver.
	ApproveEntry(ctx context.Context, entryID string, approverID string) (*domain.JournalEntry, error)

	// RejectEntry rejects a SUBMITTED entry back to DRAFT, recording reviewer and reason.
	RejectEntry(ctx context.Context, entryID string, approverID string, reason string) (*domain.JournalEntry, error)
}

// EntrySvcFacade combines all entry-related service interfaces.
type EntrySvcFacade interface {
	EntryReaderSvc
	EntryWriterSvc
}
