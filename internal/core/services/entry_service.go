package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/finsuite/ledger_engine/internal/core/ports/services"
	"github.com/finsuite/ledger_engine/internal/dto"
	"github.com/finsuite/ledger_engine/internal/middleware"
	"github.com/finsuite/ledger_engine/internal/utils/accounting"
)

var (
	ErrEntryUnbalanced = errors.New("journal entry debits and credits do not balance")
	ErrInvalidLine     = errors.New("invalid journal entry line")
	ErrEntryMinLines   = errors.New("journal entry must have at least two lines")
	ErrEntryNotFound   = errors.New("journal entry not found")
)

// entryService owns the journal entry lifecycle up to approval. Posting and
// reversal are the posting coordinator's job.
type entryService struct {
	entryRepo  portsrepo.EntryRepositoryFacade
	accountSvc portssvc.AccountSvcFacade
	periodRepo portsrepo.PeriodReader
	tolerance  decimal.Decimal
}

// NewEntryService creates a new journal entry service. A non-positive
// tolerance falls back to the default of 0.01.
func NewEntryService(entryRepo portsrepo.EntryRepositoryFacade, accountSvc portssvc.AccountSvcFacade, periodRepo portsrepo.PeriodReader, tolerance decimal.Decimal) portssvc.EntrySvcFacade {
	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = accounting.DefaultBalanceTolerance
	}
	return &entryService{
		entryRepo:  entryRepo,
		accountSvc: accountSvc,
		periodRepo: periodRepo,
		tolerance:  tolerance,
	}
}

var _ portssvc.EntrySvcFacade = (*entryService)(nil)

// validateLine enforces the per-line invariant: non-negative amounts and
// exactly one nonzero side.
func validateLine(accountID string, debit, credit decimal.Decimal) error {
	if debit.IsNegative() || credit.IsNegative() {
		return fmt.Errorf("%w: amounts must be non-negative for account %s", ErrInvalidLine, accountID)
	}
	if debit.IsPositive() && credit.IsPositive() {
		return fmt.Errorf("%w: line for account %s has both debit %s and credit %s", ErrInvalidLine, accountID, debit.String(), credit.String())
	}
	if debit.IsZero() && credit.IsZero() {
		return fmt.Errorf("%w: line for account %s has neither debit nor credit", ErrInvalidLine, accountID)
	}
	return nil
}

// validateBalance enforces the entry-level balance invariant within tolerance.
func (s *entryService) validateBalance(lines []domain.JournalEntryLine) error {
	debits, credits, diff := accounting.BalanceDifference(lines)
	if diff.Abs().GreaterThan(s.tolerance) {
		return fmt.Errorf("%w: debits total %s, credits total %s, difference %s",
			ErrEntryUnbalanced, debits.String(), credits.String(), diff.String())
	}
	return nil
}

// validateAccounts checks that every referenced account exists and is active.
func (s *entryService) validateAccounts(ctx context.Context, lines []domain.JournalEntryLine) error {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; !ok {
			seen[l.AccountID] = struct{}{}
			ids = append(ids, l.AccountID)
		}
	}

	accounts, err := s.accountSvc.GetAccountsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for _, id := range ids {
		acc, found := accounts[id]
		if !found {
			return fmt.Errorf("%w: ID %s", ErrAccountNotFound, id)
		}
		if !acc.IsActive {
			return fmt.Errorf("%w: account %s", ErrAccountInactive, id)
		}
	}
	return nil
}

// CreateEntry validates and persists a new DRAFT journal entry.
func (s *entryService) CreateEntry(ctx context.Context, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if len(req.Lines) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrEntryMinLines, len(req.Lines))
	}

	// A retried create with the same key replays the original entry.
	if req.IdempotencyKey != "" {
		if existing, err := s.entryRepo.FindEntryByCreationKey(ctx, req.IdempotencyKey); err == nil {
			logger.Debug("Create replayed from idempotency key", slog.String("entry_id", existing.EntryID), slog.String("idempotency_key", req.IdempotencyKey))
			return existing, nil
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to check creation idempotency key: %w", err)
		}
	}

	if existing, err := s.entryRepo.FindEntryByReference(ctx, req.ReferenceNumber); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: reference number %s", apperrors.ErrDuplicate, req.ReferenceNumber)
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check reference uniqueness: %w", err)
	}

	if req.PeriodID != nil {
		if _, err := s.periodRepo.FindPeriodByID(ctx, *req.PeriodID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: period %s", apperrors.ErrNotFound, *req.PeriodID)
			}
			return nil, fmt.Errorf("failed to fetch period: %w", err)
		}
	}

	now := time.Now().UTC()
	entryID := uuid.NewString()

	lines := make([]domain.JournalEntryLine, len(req.Lines))
	for i, lr := range req.Lines {
		if err := validateLine(lr.AccountID, lr.Debit, lr.Credit); err != nil {
			return nil, err
		}
		lines[i] = domain.JournalEntryLine{
			LineID:    uuid.NewString(),
			EntryID:   entryID,
			AccountID: lr.AccountID,
			Debit:     lr.Debit,
			Credit:    lr.Credit,
			Memo:      lr.Memo,
		}
	}

	if err := s.validateBalance(lines); err != nil {
		return nil, err
	}
	if err := s.validateAccounts(ctx, lines); err != nil {
		return nil, err
	}

	entry := domain.JournalEntry{
		EntryID:         entryID,
		Date:            req.Date,
		ReferenceNumber: req.ReferenceNumber,
		Source:          req.Source,
		Description:     req.Description,
		Lines:           lines,
		Status:          domain.EntryDraft,
		ApprovalStatus:  domain.ApprovalPending,
		PeriodID:        req.PeriodID,
		CreationKey:     req.IdempotencyKey,
		AuditFields:     domain.NewAuditFields(creatorUserID, now),
	}

	if err := s.entryRepo.SaveEntry(ctx, entry); err != nil {
		logger.Error("Failed to save journal entry", slog.String("error", err.Error()), slog.String("reference", req.ReferenceNumber))
		return nil, fmt.Errorf("failed to save journal entry: %w", err)
	}

	logger.Info("Journal entry created", slog.String("entry_id", entryID), slog.String("reference", req.ReferenceNumber))
	return &entry, nil
}

// GetEntryByID retrieves an entry with its lines.
func (s *entryService) GetEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	entry, err := s.entryRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrEntryNotFound, entryID)
		}
		return nil, fmt.Errorf("failed to find entry %s: %w", entryID, err)
	}
	return entry, nil
}

// ListEntries retrieves a paginated list of entries.
func (s *entryService) ListEntries(ctx context.Context, limit int, offset int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	entries, err := s.entryRepo.ListEntries(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// AddLine appends a line to a DRAFT entry.
func (s *entryService) AddLine(ctx context.Context, entryID string, req dto.CreateLineRequest, userID string) (*domain.JournalEntry, error) {
	entry, err := s.GetEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := validateLine(req.AccountID, req.Debit, req.Credit); err != nil {
		return nil, err
	}
	line := domain.JournalEntryLine{
		LineID:    uuid.NewString(),
		EntryID:   entryID,
		AccountID: req.AccountID,
		Debit:     req.Debit,
		Credit:    req.Credit,
		Memo:      req.Memo,
	}
	if err := entry.AddLine(line); err != nil {
		return nil, err
	}
	if err := s.validateAccounts(ctx, []domain.JournalEntryLine{line}); err != nil {
		return nil, err
	}

	entry.Touch(userID, time.Now().UTC())
	if err := s.entryRepo.UpdateEntry(ctx, *entry); err != nil {
		return nil, fmt.Errorf("failed to update entry %s: %w", entryID, err)
	}
	return entry, nil
}

// RemoveLine deletes a line from a DRAFT entry.
func (s *entryService) RemoveLine(ctx context.Context, entryID string, lineID string, userID string) (*domain.JournalEntry, error) {
	entry, err := s.GetEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := entry.RemoveLine(lineID); err != nil {
		return nil, err
	}

	entry.Touch(userID, time.Now().UTC())
	if err := s.entryRepo.UpdateEntry(ctx, *entry); err != nil {
		return nil, fmt.Errorf("failed to update entry %s: %w", entryID, err)
	}
	return entry, nil
}

// SubmitEntry re-validates the balance invariant (lines may have changed
// since creation) and moves the entry to SUBMITTED.
func (s *entryService) SubmitEntry(ctx context.Context, entryID string, userID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, err := s.GetEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if len(entry.Lines) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrEntryMinLines, len(entry.Lines))
	}
	if err := s.validateBalance(entry.Lines); err != nil {
		return nil, err
	}
	if err := s.validateAccounts(ctx, entry.Lines); err != nil {
		return nil, err
	}

	if err := entry.MarkSubmitted(userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.entryRepo.UpdateEntry(ctx, *entry); err != nil {
		return nil, fmt.Errorf("failed to update entry %s: %w", entryID, err)
	}

	logger.Info("Journal entry submitted", slog.String("entry_id", entryID))
	return entry, nil
}

// ApproveEntry approves a SUBMITTED entry.
func (s *entryService) ApproveEntry(ctx context.Context, entryID string, approverID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, err := s.GetEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := entry.MarkApproved(approverID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.entryRepo.UpdateEntry(ctx, *entry); err != nil {
		return nil, fmt.Errorf("failed to update entry %s: %w", entryID, err)
	}

	logger.Info("Journal entry approved", slog.String("entry_id", entryID), slog.String("approver", approverID))
	return entry, nil
}

// RejectEntry rejects a SUBMITTED entry back to DRAFT.
func (s *entryService) RejectEntry(ctx context.Context, entryID string, approverID string, reason string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, err := s.GetEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := entry.MarkRejected(approverID, reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.entryRepo.UpdateEntry(ctx, *entry); err != nil {
		return nil, fmt.Errorf("failed to update entry %s: %w", entryID, err)
	}

	logger.Info("Journal entry rejected", slog.String("entry_id", entryID), slog.String("approver", approverID), slog.String("reason", reason))
	return entry, nil
}
