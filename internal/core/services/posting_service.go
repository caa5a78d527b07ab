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
	"github.com/finsuite/ledger_engine/internal/events"
	"github.com/finsuite/ledger_engine/internal/middleware"
	"github.com/finsuite/ledger_engine/internal/utils/accounting"
)

const (
	// postRetryAttempts bounds automatic retries on concurrency conflicts.
	postRetryAttempts = 3
	postRetryBaseWait = 50 * time.Millisecond
)

// BatchPostingAbortedError reports which member entry caused a batch post to
// abort. No balance changes were applied.
type BatchPostingAbortedError struct {
	BatchID       string
	FailedEntryID string
	Cause         error
}

func (e *BatchPostingAbortedError) Error() string {
	return fmt.Sprintf("batch %s posting aborted: entry %s: %v", e.BatchID, e.FailedEntryID, e.Cause)
}

func (e *BatchPostingAbortedError) Unwrap() error {
	return e.Cause
}

// postingService is the posting coordinator: the single component allowed to
// transition entries to POSTED, mutate account balances, and synthesize
// reversing entries. All balance effects funnel through
// PostingRepository.PostAtomically, which is the serialization point.
type postingService struct {
	entryRepo   portsrepo.EntryRepositoryFacade
	batchRepo   portsrepo.BatchRepositoryFacade
	periodRepo  portsrepo.PeriodReader
	accountRepo portsrepo.AccountReader
	postingRepo portsrepo.PostingRepository
	publisher   events.Publisher
	tolerance   decimal.Decimal
}

// NewPostingService creates the posting coordinator. The returned service
// implements both the posting and the reversal facades.
func NewPostingService(
	entryRepo portsrepo.EntryRepositoryFacade,
	batchRepo portsrepo.BatchRepositoryFacade,
	periodRepo portsrepo.PeriodReader,
	accountRepo portsrepo.AccountReader,
	postingRepo portsrepo.PostingRepository,
	publisher events.Publisher,
	tolerance decimal.Decimal,
) interface {
	portssvc.PostingSvcFacade
	portssvc.ReversalSvcFacade
} {
	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = accounting.DefaultBalanceTolerance
	}
	return &postingService{
		entryRepo:   entryRepo,
		batchRepo:   batchRepo,
		periodRepo:  periodRepo,
		accountRepo: accountRepo,
		postingRepo: postingRepo,
		publisher:   publisher,
		tolerance:   tolerance,
	}
}

// resolvePeriod returns the accounting period governing the entry's
// transaction date: the explicitly linked period if any, otherwise the period
// whose window contains the date (nil when no period covers it).
func (s *postingService) resolvePeriod(ctx context.Context, entry *domain.JournalEntry) (*domain.AccountingPeriod, error) {
	if entry.PeriodID != nil {
		period, err := s.periodRepo.FindPeriodByID(ctx, *entry.PeriodID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch period %s: %w", *entry.PeriodID, err)
		}
		return period, nil
	}
	period, err := s.periodRepo.FindPeriodForDate(ctx, entry.Date)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve period for date %s: %w", entry.Date.Format("2006-01-02"), err)
	}
	return period, nil
}

// validateForPosting re-checks everything that must hold at post time: the
// balance invariant, the period-open status (the period may have closed since
// approval), and that every referenced account exists and is active. It
// returns the entry's net balance deltas and whether the governing period was
// ever reopened.
func (s *postingService) validateForPosting(ctx context.Context, entry *domain.JournalEntry) (map[string]decimal.Decimal, bool, error) {
	if entry.ApprovalStatus != domain.ApprovalApproved {
		return nil, false, fmt.Errorf("%w: entry %s has approval status %s", domain.ErrEntryNotApproved, entry.EntryID, entry.ApprovalStatus)
	}
	if entry.Status != domain.EntrySubmitted {
		return nil, false, fmt.Errorf("%w: entry %s has status %s", domain.ErrEntryNotSubmitted, entry.EntryID, entry.Status)
	}

	debits, credits, diff := accounting.BalanceDifference(entry.Lines)
	if diff.Abs().GreaterThan(s.tolerance) {
		return nil, false, fmt.Errorf("%w: entry %s has debits %s, credits %s, difference %s",
			ErrEntryUnbalanced, entry.EntryID, debits.String(), credits.String(), diff.String())
	}

	period, err := s.resolvePeriod(ctx, entry)
	if err != nil {
		return nil, false, err
	}
	reopened := false
	if period != nil {
		if !period.IsOpen() {
			return nil, false, fmt.Errorf("%w: entry %s dated %s falls in closed period %s",
				domain.ErrPeriodClosed, entry.EntryID, entry.Date.Format("2006-01-02"), period.Name)
		}
		if entry.PeriodID != nil && !period.Contains(entry.Date) {
			return nil, false, fmt.Errorf("%w: entry %s dated %s is outside period %s",
				apperrors.ErrValidation, entry.EntryID, entry.Date.Format("2006-01-02"), period.Name)
		}
		reopened = period.WasReopened()
	}

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, entry.AccountIDs())
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch accounts for entry %s: %w", entry.EntryID, err)
	}
	accountTypes := make(map[string]domain.AccountType, len(accounts))
	for _, id := range entry.AccountIDs() {
		acc, found := accounts[id]
		if !found {
			return nil, false, fmt.Errorf("%w: ID %s", ErrAccountNotFound, id)
		}
		if !acc.IsActive {
			return nil, false, fmt.Errorf("%w: account %s", ErrAccountInactive, id)
		}
		accountTypes[id] = acc.AccountType
	}

	deltas, err := accounting.NetDeltas(entry.Lines, accountTypes)
	if err != nil {
		return nil, false, fmt.Errorf("failed to compute balance deltas for entry %s: %w", entry.EntryID, err)
	}
	return deltas, reopened, nil
}

// commitWithRetry runs PostAtomically, retrying on concurrency conflicts with
// bounded exponential backoff. Validation and state errors never retry.
func (s *postingService) commitWithRetry(ctx context.Context, unit portsrepo.PostingUnit) error {
	var err error
	wait := postRetryBaseWait
	for attempt := 0; attempt < postRetryAttempts; attempt++ {
		err = s.postingRepo.PostAtomically(ctx, unit)
		if err == nil || !errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}

func (s *postingService) publishReceipts(ctx context.Context, receipts []domain.PostingReceipt) {
	for _, r := range receipts {
		s.publisher.PublishEntryPosted(ctx, events.EntryPosted{
			EntryID:            r.EntryID,
			BatchID:            r.BatchID,
			AffectedAccountIDs: r.AffectedAccountIDs,
			PostedAt:           r.PostedAt,
		})
	}
}

// PostEntry posts one approved entry. Retrying with the same idempotency key
// (or against an already-posted entry) returns the prior receipt without
// touching balances.
func (s *postingService) PostEntry(ctx context.Context, entryID string, idempotencyKey string, userID string) (*domain.PostingReceipt, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if idempotencyKey == "" {
		idempotencyKey = "entry-post:" + entryID
	}

	if receipt, err := s.postingRepo.FindReceiptByKey(ctx, idempotencyKey); err == nil {
		if receipt.EntryID != entryID {
			return nil, fmt.Errorf("%w: idempotency key %s was used for entry %s", apperrors.ErrConflict, idempotencyKey, receipt.EntryID)
		}
		logger.Debug("Post replayed from receipt", slog.String("entry_id", entryID), slog.String("idempotency_key", idempotencyKey))
		return receipt, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up posting receipt: %w", err)
	}

	entry, err := s.entryRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrEntryNotFound, entryID)
		}
		return nil, fmt.Errorf("failed to find entry %s: %w", entryID, err)
	}

	// An entry posted under a different key is still a no-op: return its receipt.
	if entry.Status == domain.EntryPosted || entry.Status == domain.EntryReversed {
		receipt, err := s.postingRepo.FindReceiptByEntryID(ctx, entryID)
		if err != nil {
			return nil, fmt.Errorf("entry %s is posted but its receipt could not be loaded: %w", entryID, err)
		}
		return receipt, nil
	}

	deltas, reopened, err := s.validateForPosting(ctx, entry)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := entry.MarkPosted(userID, now); err != nil {
		return nil, err
	}
	entry.PostedToReopenedPeriod = reopened

	receipt := domain.PostingReceipt{
		IdempotencyKey:     idempotencyKey,
		EntryID:            entryID,
		AffectedAccountIDs: entry.AccountIDs(),
		PostedAt:           now,
		PostedBy:           userID,
	}

	unit := portsrepo.PostingUnit{
		Entries:       []domain.JournalEntry{*entry},
		BalanceDeltas: deltas,
		Receipts:      []domain.PostingReceipt{receipt},
	}
	if err := s.commitWithRetry(ctx, unit); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// Lost a race with a concurrent retry: same key, or the same
			// entry posted under a different key.
			if prior, lookupErr := s.postingRepo.FindReceiptByKey(ctx, idempotencyKey); lookupErr == nil {
				return prior, nil
			}
			if prior, lookupErr := s.postingRepo.FindReceiptByEntryID(ctx, entryID); lookupErr == nil {
				return prior, nil
			}
		}
		logger.Error("Failed to post entry", slog.String("error", err.Error()), slog.String("entry_id", entryID))
		return nil, err
	}

	logger.Info("Journal entry posted", slog.String("entry_id", entryID), slog.Int("accounts", len(deltas)))
	s.publishReceipts(ctx, unit.Receipts)
	return &receipt, nil
}

// PostBatch posts every member of an approved batch as one atomic unit. Any
// member failing validation aborts the whole batch with zero balance changes.
func (s *postingService) PostBatch(ctx context.Context, batchID string, idempotencyKey string, userID string) ([]domain.PostingReceipt, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if idempotencyKey == "" {
		idempotencyKey = "batch-post:" + batchID
	}

	batch, err := s.batchRepo.FindBatchByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrBatchNotFound, batchID)
		}
		return nil, fmt.Errorf("failed to find batch %s: %w", batchID, err)
	}

	// A batch that already posted replays its member receipts.
	if batch.Status == domain.BatchPosted {
		receipts := make([]domain.PostingReceipt, 0, len(batch.EntryIDs))
		for _, entryID := range batch.EntryIDs {
			receipt, err := s.postingRepo.FindReceiptByEntryID(ctx, entryID)
			if err != nil {
				return nil, fmt.Errorf("batch %s is posted but receipt for entry %s could not be loaded: %w", batchID, entryID, err)
			}
			receipts = append(receipts, *receipt)
		}
		return receipts, nil
	}

	if batch.Status != domain.BatchApproved {
		return nil, fmt.Errorf("%w: status is %s", domain.ErrBatchNotApproved, batch.Status)
	}
	if len(batch.EntryIDs) == 0 {
		return nil, fmt.Errorf("%w: batch %s", domain.ErrBatchEmpty, batch.BatchNumber)
	}

	entriesByID, err := s.entryRepo.FindEntriesByIDs(ctx, batch.EntryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batch entries: %w", err)
	}

	now := time.Now().UTC()
	mergedDeltas := make(map[string]decimal.Decimal)
	entries := make([]domain.JournalEntry, 0, len(batch.EntryIDs))
	receipts := make([]domain.PostingReceipt, 0, len(batch.EntryIDs))

	for _, entryID := range batch.EntryIDs {
		entry, found := entriesByID[entryID]
		if !found {
			return nil, &BatchPostingAbortedError{BatchID: batchID, FailedEntryID: entryID, Cause: fmt.Errorf("%w: ID %s", ErrEntryNotFound, entryID)}
		}

		deltas, reopened, err := s.validateForPosting(ctx, &entry)
		if err != nil {
			return nil, &BatchPostingAbortedError{BatchID: batchID, FailedEntryID: entryID, Cause: err}
		}
		if err := entry.MarkPosted(userID, now); err != nil {
			return nil, &BatchPostingAbortedError{BatchID: batchID, FailedEntryID: entryID, Cause: err}
		}
		entry.PostedToReopenedPeriod = reopened
		entry.BatchID = &batch.BatchID

		for accountID, delta := range deltas {
			mergedDeltas[accountID] = mergedDeltas[accountID].Add(delta)
		}

		entries = append(entries, entry)
		receipts = append(receipts, domain.PostingReceipt{
			IdempotencyKey:     fmt.Sprintf("%s:%s", idempotencyKey, entryID),
			EntryID:            entryID,
			BatchID:            &batch.BatchID,
			AffectedAccountIDs: entry.AccountIDs(),
			PostedAt:           now,
			PostedBy:           userID,
		})
	}

	if err := batch.MarkPosted(userID, now); err != nil {
		return nil, err
	}

	unit := portsrepo.PostingUnit{
		Entries:       entries,
		Batch:         batch,
		BalanceDeltas: mergedDeltas,
		Receipts:      receipts,
	}
	if err := s.commitWithRetry(ctx, unit); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return s.PostBatch(ctx, batchID, idempotencyKey, userID)
		}
		logger.Error("Failed to post batch", slog.String("error", err.Error()), slog.String("batch_id", batchID))
		return nil, err
	}

	logger.Info("Posting batch posted", slog.String("batch_id", batchID), slog.Int("entries", len(entries)), slog.Int("accounts", len(mergedDeltas)))
	s.publishReceipts(ctx, receipts)
	return receipts, nil
}

// ReverseEntry synthesizes the mirror of a posted entry and runs it through
// the full pipeline: swapped debit/credit sides, same amounts, reference
// "REV-" + the original reference, posted against the period containing the
// reversal date. The original's lines are never mutated; the two entries are
// linked symmetrically.
func (s *postingService) ReverseEntry(ctx context.Context, entryID string, reversalDate time.Time, reason string, userID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.entryRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrEntryNotFound, entryID)
		}
		return nil, fmt.Errorf("failed to find entry %s: %w", entryID, err)
	}

	if original.ReversedByEntryID != nil || original.Status == domain.EntryReversed {
		return nil, fmt.Errorf("%w: entry %s", domain.ErrEntryAlreadyReversed, entryID)
	}
	if original.Status != domain.EntryPosted {
		return nil, fmt.Errorf("%w: entry %s has status %s", domain.ErrEntryNotPosted, entryID, original.Status)
	}

	now := time.Now().UTC()
	reversingID := uuid.NewString()

	lines := make([]domain.JournalEntryLine, len(original.Lines))
	for i, l := range original.Lines {
		lines[i] = domain.JournalEntryLine{
			LineID:    uuid.NewString(),
			EntryID:   reversingID,
			AccountID: l.AccountID,
			Debit:     l.Credit, // sides swapped, amounts preserved
			Credit:    l.Debit,
			Memo:      l.Memo,
		}
	}

	var periodID *string
	reopened := false
	if period, err := s.periodRepo.FindPeriodForDate(ctx, reversalDate); err == nil {
		if !period.IsOpen() {
			return nil, fmt.Errorf("%w: reversal date %s falls in closed period %s",
				domain.ErrPeriodClosed, reversalDate.Format("2006-01-02"), period.Name)
		}
		periodID = &period.PeriodID
		reopened = period.WasReopened()
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve period for reversal date: %w", err)
	}

	reversing := domain.JournalEntry{
		EntryID:         reversingID,
		Date:            reversalDate,
		ReferenceNumber: "REV-" + original.ReferenceNumber,
		Source:          original.Source,
		Description:     fmt.Sprintf("Reversal of %s: %s", original.ReferenceNumber, reason),
		Lines:           lines,
		Status:          domain.EntryDraft,
		ApprovalStatus:  domain.ApprovalPending,
		PeriodID:        periodID,
		ReversesEntryID: &original.EntryID,
		AuditFields:     domain.NewAuditFields(userID, now),
	}

	// The mirror runs the full pipeline: submit, approve, post.
	if err := reversing.MarkSubmitted(userID, now); err != nil {
		return nil, err
	}
	if err := reversing.MarkApproved(userID, now); err != nil {
		return nil, err
	}

	deltas, err := s.reversalDeltas(ctx, reversing.Lines)
	if err != nil {
		return nil, err
	}

	if err := reversing.MarkPosted(userID, now); err != nil {
		return nil, err
	}
	reversing.PostedToReopenedPeriod = reopened

	if err := original.MarkReversed(reversingID, userID, now); err != nil {
		return nil, err
	}

	receipt := domain.PostingReceipt{
		IdempotencyKey:     "reverse:" + original.EntryID,
		EntryID:            reversingID,
		AffectedAccountIDs: reversing.AccountIDs(),
		PostedAt:           now,
		PostedBy:           userID,
	}

	unit := portsrepo.PostingUnit{
		Entries:         []domain.JournalEntry{reversing},
		ReversedEntries: []domain.JournalEntry{*original},
		BalanceDeltas:   deltas,
		Receipts:        []domain.PostingReceipt{receipt},
	}
	if err := s.commitWithRetry(ctx, unit); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// A concurrent reversal of the same entry won; surface the conflict.
			return nil, fmt.Errorf("%w: entry %s", domain.ErrEntryAlreadyReversed, entryID)
		}
		logger.Error("Failed to post reversing entry", slog.String("error", err.Error()), slog.String("entry_id", entryID))
		return nil, err
	}

	logger.Info("Journal entry reversed", slog.String("entry_id", entryID), slog.String("reversing_entry_id", reversingID))
	s.publishReceipts(ctx, unit.Receipts)
	return &reversing, nil
}

// reversalDeltas computes net deltas for reversing lines. Accounts must still
// exist; a deactivated account does not block a reversal, because the net
// effect restores its prior balance.
func (s *postingService) reversalDeltas(ctx context.Context, lines []domain.JournalEntryLine) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; !ok {
			seen[l.AccountID] = struct{}{}
			ids = append(ids, l.AccountID)
		}
	}
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts for reversal: %w", err)
	}
	accountTypes := make(map[string]domain.AccountType, len(accounts))
	for _, id := range ids {
		acc, found := accounts[id]
		if !found {
			return nil, fmt.Errorf("%w: ID %s", ErrAccountNotFound, id)
		}
		accountTypes[id] = acc.AccountType
	}
	return accounting.NetDeltas(lines, accountTypes)
}
