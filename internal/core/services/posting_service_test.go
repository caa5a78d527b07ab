package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/finsuite/ledger_engine/internal/core/ports/services"
	"github.com/finsuite/ledger_engine/internal/core/services"
	"github.com/finsuite/ledger_engine/internal/events"
	"github.com/finsuite/ledger_engine/internal/repositories/database/memory"
)

// PostingServiceTestSuite exercises the posting coordinator against the
// in-memory repositories, which share the atomicity and serialization
// contract with the Postgres implementation.
type PostingServiceTestSuite struct {
	suite.Suite
	accountRepo portsrepo.AccountRepositoryFacade
	entryRepo   portsrepo.EntryRepositoryFacade
	batchRepo   portsrepo.BatchRepositoryFacade
	periodRepo  portsrepo.PeriodRepositoryFacade
	postingRepo *memory.PostingRepository
	publisher   *events.InProcessPublisher

	service interface {
		portssvc.PostingSvcFacade
		portssvc.ReversalSvcFacade
	}

	userID string
}

func (s *PostingServiceTestSuite) SetupTest() {
	store := memory.NewStore()
	s.accountRepo = memory.NewAccountRepository(store)
	s.entryRepo = memory.NewEntryRepository(store)
	s.batchRepo = memory.NewBatchRepository(store)
	s.periodRepo = memory.NewPeriodRepository(store)
	s.postingRepo = memory.NewPostingRepository(store)
	s.publisher = events.NewInProcessPublisher(nil)

	s.service = services.NewPostingService(
		s.entryRepo,
		s.batchRepo,
		s.periodRepo,
		s.accountRepo,
		s.postingRepo,
		s.publisher,
		decimal.Zero,
	)
	s.userID = uuid.NewString()
}

func (s *PostingServiceTestSuite) newAccount(code string, accType domain.AccountType) domain.Account {
	acc := domain.Account{
		AccountID:   uuid.NewString(),
		AccountCode: code,
		Name:        code,
		AccountType: accType,
		IsActive:    true,
		Balance:     decimal.Zero,
		AuditFields: domain.NewAuditFields(s.userID, time.Now().UTC()),
	}
	s.Require().NoError(s.accountRepo.SaveAccount(context.Background(), acc))
	return acc
}

// newApprovedEntry builds and stores an entry that is SUBMITTED and APPROVED,
// ready for posting.
func (s *PostingServiceTestSuite) newApprovedEntry(reference string, date time.Time, lines []domain.JournalEntryLine) domain.JournalEntry {
	now := time.Now().UTC()
	entryID := uuid.NewString()
	for i := range lines {
		lines[i].LineID = uuid.NewString()
		lines[i].EntryID = entryID
	}
	entry := domain.JournalEntry{
		EntryID:         entryID,
		Date:            date,
		ReferenceNumber: reference,
		Source:          "test",
		Lines:           lines,
		Status:          domain.EntryDraft,
		ApprovalStatus:  domain.ApprovalPending,
		AuditFields:     domain.NewAuditFields(s.userID, now),
	}
	s.Require().NoError(entry.MarkSubmitted(s.userID, now))
	s.Require().NoError(entry.MarkApproved(s.userID, now))
	s.Require().NoError(s.entryRepo.SaveEntry(context.Background(), entry))
	return entry
}

func (s *PostingServiceTestSuite) balance(accountID string) decimal.Decimal {
	acc, err := s.accountRepo.FindAccountByID(context.Background(), accountID)
	s.Require().NoError(err)
	return acc.Balance
}

func debitLine(accountID string, amount int64) domain.JournalEntryLine {
	return domain.JournalEntryLine{AccountID: accountID, Debit: decimal.NewFromInt(amount)}
}

func creditLine(accountID string, amount int64) domain.JournalEntryLine {
	return domain.JournalEntryLine{AccountID: accountID, Credit: decimal.NewFromInt(amount)}
}

func (s *PostingServiceTestSuite) TestPostEntryCashSaleUpdatesBothBalances() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-1", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 500),
		creditLine(revenue.AccountID, 500),
	})

	receipt, err := s.service.PostEntry(ctx, entry.EntryID, "post-1", s.userID)
	s.Require().NoError(err)

	s.True(s.balance(cash.AccountID).Equal(decimal.NewFromInt(500)), "debit increases an asset account")
	s.True(s.balance(revenue.AccountID).Equal(decimal.NewFromInt(500)), "credit increases a revenue account")

	stored, err := s.entryRepo.FindEntryByID(ctx, entry.EntryID)
	s.Require().NoError(err)
	s.Equal(domain.EntryPosted, stored.Status)
	s.ElementsMatch([]string{cash.AccountID, revenue.AccountID}, receipt.AffectedAccountIDs)
}

func (s *PostingServiceTestSuite) TestPostEntrySignConventionAcrossAllCategories() {
	ctx := context.Background()
	asset := s.newAccount("1000", domain.Asset)
	expense := s.newAccount("5000", domain.Expense)
	liability := s.newAccount("2000", domain.Liability)
	equity := s.newAccount("3000", domain.Equity)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-2", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(asset.AccountID, 100),
		debitLine(expense.AccountID, 50),
		creditLine(liability.AccountID, 60),
		creditLine(equity.AccountID, 40),
		creditLine(revenue.AccountID, 50),
	})

	_, err := s.service.PostEntry(ctx, entry.EntryID, "post-2", s.userID)
	s.Require().NoError(err)

	s.True(s.balance(asset.AccountID).Equal(decimal.NewFromInt(100)))
	s.True(s.balance(expense.AccountID).Equal(decimal.NewFromInt(50)))
	s.True(s.balance(liability.AccountID).Equal(decimal.NewFromInt(60)))
	s.True(s.balance(equity.AccountID).Equal(decimal.NewFromInt(40)))
	s.True(s.balance(revenue.AccountID).Equal(decimal.NewFromInt(50)))
}

func (s *PostingServiceTestSuite) TestPostEntryIdempotentPerKey() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-3", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 500),
		creditLine(revenue.AccountID, 500),
	})

	first, err := s.service.PostEntry(ctx, entry.EntryID, "retry-key", s.userID)
	s.Require().NoError(err)

	second, err := s.service.PostEntry(ctx, entry.EntryID, "retry-key", s.userID)
	s.Require().NoError(err)

	s.Equal(first.IdempotencyKey, second.IdempotencyKey)
	s.Equal(first.EntryID, second.EntryID)
	s.True(s.balance(cash.AccountID).Equal(decimal.NewFromInt(500)), "balance applied exactly once")
}

func (s *PostingServiceTestSuite) TestPostAlreadyPostedEntryWithNewKeyIsNoOp() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-4", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 100),
		creditLine(revenue.AccountID, 100),
	})

	_, err := s.service.PostEntry(ctx, entry.EntryID, "key-a", s.userID)
	s.Require().NoError(err)

	receipt, err := s.service.PostEntry(ctx, entry.EntryID, "key-b", s.userID)
	s.Require().NoError(err)
	s.Equal("key-a", receipt.IdempotencyKey)
	s.True(s.balance(cash.AccountID).Equal(decimal.NewFromInt(100)))
}

func (s *PostingServiceTestSuite) TestPostEntryIntoClosedPeriodRejected() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)
	period := domain.AccountingPeriod{
		PeriodID:    uuid.NewString(),
		Name:        "2025-09",
		StartDate:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC),
		Status:      domain.PeriodOpen,
		AuditFields: domain.NewAuditFields(s.userID, time.Now().UTC()),
	}
	s.Require().NoError(s.periodRepo.SavePeriod(ctx, period))

	entry := s.newApprovedEntry("JE-5", date, []domain.JournalEntryLine{
		debitLine(cash.AccountID, 100),
		creditLine(revenue.AccountID, 100),
	})

	// Close the period between approval and posting.
	s.Require().NoError(period.MarkClosed(s.userID, time.Now().UTC()))
	s.Require().NoError(s.periodRepo.UpdatePeriod(ctx, period))

	_, err := s.service.PostEntry(ctx, entry.EntryID, "post-5", s.userID)
	s.ErrorIs(err, domain.ErrPeriodClosed)

	stored, ferr := s.entryRepo.FindEntryByID(ctx, entry.EntryID)
	s.Require().NoError(ferr)
	s.Equal(domain.EntrySubmitted, stored.Status, "entry remains postable after the period reopens")
	s.True(s.balance(cash.AccountID).IsZero())
}

func (s *PostingServiceTestSuite) TestPostEntryIntoReopenedPeriodFlagged() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	date := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	period := domain.AccountingPeriod{
		PeriodID:    uuid.NewString(),
		Name:        "2025-08",
		StartDate:   time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC),
		Status:      domain.PeriodOpen,
		AuditFields: domain.NewAuditFields(s.userID, time.Now().UTC()),
	}
	s.Require().NoError(period.MarkClosed(s.userID, time.Now().UTC()))
	s.Require().NoError(period.MarkReopened(s.userID, "late vendor invoice", time.Now().UTC()))
	s.Require().NoError(s.periodRepo.SavePeriod(ctx, period))

	entry := s.newApprovedEntry("JE-6", date, []domain.JournalEntryLine{
		debitLine(cash.AccountID, 100),
		creditLine(revenue.AccountID, 100),
	})

	_, err := s.service.PostEntry(ctx, entry.EntryID, "post-6", s.userID)
	s.Require().NoError(err)

	stored, err := s.entryRepo.FindEntryByID(ctx, entry.EntryID)
	s.Require().NoError(err)
	s.True(stored.PostedToReopenedPeriod)
}

func (s *PostingServiceTestSuite) TestPostUnapprovedEntryRejected() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	now := time.Now().UTC()
	entryID := uuid.NewString()
	entry := domain.JournalEntry{
		EntryID:         entryID,
		Date:            now,
		ReferenceNumber: "JE-7",
		Source:          "test",
		Lines: []domain.JournalEntryLine{
			{LineID: uuid.NewString(), EntryID: entryID, AccountID: cash.AccountID, Debit: decimal.NewFromInt(10)},
			{LineID: uuid.NewString(), EntryID: entryID, AccountID: revenue.AccountID, Credit: decimal.NewFromInt(10)},
		},
		Status:         domain.EntryDraft,
		ApprovalStatus: domain.ApprovalPending,
		AuditFields:    domain.NewAuditFields(s.userID, now),
	}
	s.Require().NoError(entry.MarkSubmitted(s.userID, now))
	s.Require().NoError(s.entryRepo.SaveEntry(ctx, entry))

	_, err := s.service.PostEntry(ctx, entry.EntryID, "post-7", s.userID)
	s.ErrorIs(err, domain.ErrEntryNotApproved)
}

func (s *PostingServiceTestSuite) newApprovedBatch(entries ...domain.JournalEntry) domain.PostingBatch {
	now := time.Now().UTC()
	batchID := uuid.NewString()
	batch := domain.PostingBatch{
		BatchID:     batchID,
		BatchNumber: "BATCH-TEST-" + batchID[:8],
		BatchDate:   now,
		Status:      domain.BatchOpen,
		AuditFields: domain.NewAuditFields(s.userID, now),
	}
	for _, e := range entries {
		s.Require().NoError(batch.AttachEntry(e.EntryID))
	}
	s.Require().NoError(batch.MarkSubmitted(s.userID, now))
	s.Require().NoError(batch.MarkApproved(uuid.NewString(), now))
	s.Require().NoError(s.batchRepo.SaveBatch(context.Background(), batch))
	return batch
}

func (s *PostingServiceTestSuite) TestPostBatchAppliesAllEntries() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)
	expense := s.newAccount("5000", domain.Expense)

	e1 := s.newApprovedEntry("JE-B1", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 300),
		creditLine(revenue.AccountID, 300),
	})
	e2 := s.newApprovedEntry("JE-B2", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(expense.AccountID, 120),
		creditLine(cash.AccountID, 120),
	})
	batch := s.newApprovedBatch(e1, e2)

	receipts, err := s.service.PostBatch(ctx, batch.BatchID, "batch-1", s.userID)
	s.Require().NoError(err)
	s.Len(receipts, 2)

	s.True(s.balance(cash.AccountID).Equal(decimal.NewFromInt(180)), "net of +300 debit and -120 credit")
	s.True(s.balance(revenue.AccountID).Equal(decimal.NewFromInt(300)))
	s.True(s.balance(expense.AccountID).Equal(decimal.NewFromInt(120)))

	storedBatch, err := s.batchRepo.FindBatchByID(ctx, batch.BatchID)
	s.Require().NoError(err)
	s.Equal(domain.BatchPosted, storedBatch.Status)

	for _, id := range []string{e1.EntryID, e2.EntryID} {
		stored, err := s.entryRepo.FindEntryByID(ctx, id)
		s.Require().NoError(err)
		s.Equal(domain.EntryPosted, stored.Status)
		s.Require().NotNil(stored.BatchID)
		s.Equal(batch.BatchID, *stored.BatchID)
	}
}

func (s *PostingServiceTestSuite) TestPostBatchAbortsWhenOneMemberInvalid() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	good := s.newApprovedEntry("JE-B3", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 100),
		creditLine(revenue.AccountID, 100),
	})

	// The bad member never went through approval.
	now := time.Now().UTC()
	badID := uuid.NewString()
	bad := domain.JournalEntry{
		EntryID:         badID,
		Date:            now,
		ReferenceNumber: "JE-B4",
		Source:          "test",
		Lines: []domain.JournalEntryLine{
			{LineID: uuid.NewString(), EntryID: badID, AccountID: cash.AccountID, Debit: decimal.NewFromInt(50)},
			{LineID: uuid.NewString(), EntryID: badID, AccountID: revenue.AccountID, Credit: decimal.NewFromInt(50)},
		},
		Status:         domain.EntryDraft,
		ApprovalStatus: domain.ApprovalPending,
		AuditFields:    domain.NewAuditFields(s.userID, now),
	}
	s.Require().NoError(bad.MarkSubmitted(s.userID, now))
	s.Require().NoError(s.entryRepo.SaveEntry(ctx, bad))

	batch := s.newApprovedBatch(good, bad)

	_, err := s.service.PostBatch(ctx, batch.BatchID, "batch-2", s.userID)
	s.Require().Error(err)

	var aborted *services.BatchPostingAbortedError
	s.Require().ErrorAs(err, &aborted)
	s.Equal(bad.EntryID, aborted.FailedEntryID)
	s.ErrorIs(err, domain.ErrEntryNotApproved)

	s.True(s.balance(cash.AccountID).IsZero(), "no member's deltas were applied")
	s.True(s.balance(revenue.AccountID).IsZero())

	storedGood, ferr := s.entryRepo.FindEntryByID(ctx, good.EntryID)
	s.Require().NoError(ferr)
	s.Equal(domain.EntrySubmitted, storedGood.Status)
}

func (s *PostingServiceTestSuite) TestPostBatchInjectedFailureLeavesNoPartialState() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-B5", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 200),
		creditLine(revenue.AccountID, 200),
	})
	batch := s.newApprovedBatch(entry)

	// Fail after the first staged delta, before anything commits.
	calls := 0
	s.postingRepo.ApplyDeltaHook = func(accountID string) error {
		calls++
		if calls > 1 {
			return fmt.Errorf("injected storage failure on %s", accountID)
		}
		return nil
	}
	defer func() { s.postingRepo.ApplyDeltaHook = nil }()

	_, err := s.service.PostBatch(ctx, batch.BatchID, "batch-3", s.userID)
	s.Require().Error(err)

	s.True(s.balance(cash.AccountID).IsZero())
	s.True(s.balance(revenue.AccountID).IsZero())

	storedBatch, ferr := s.batchRepo.FindBatchByID(ctx, batch.BatchID)
	s.Require().NoError(ferr)
	s.Equal(domain.BatchApproved, storedBatch.Status)

	storedEntry, ferr := s.entryRepo.FindEntryByID(ctx, entry.EntryID)
	s.Require().NoError(ferr)
	s.Equal(domain.EntrySubmitted, storedEntry.Status)
}

func (s *PostingServiceTestSuite) TestPostBatchIdempotentReplay() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-B6", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 75),
		creditLine(revenue.AccountID, 75),
	})
	batch := s.newApprovedBatch(entry)

	first, err := s.service.PostBatch(ctx, batch.BatchID, "batch-4", s.userID)
	s.Require().NoError(err)

	second, err := s.service.PostBatch(ctx, batch.BatchID, "batch-4", s.userID)
	s.Require().NoError(err)

	s.Len(second, len(first))
	s.Equal(first[0].IdempotencyKey, second[0].IdempotencyKey)
	s.True(s.balance(cash.AccountID).Equal(decimal.NewFromInt(75)))
}

func (s *PostingServiceTestSuite) TestConcurrentPostsOfSameEntryApplyOnce() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-C1", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 500),
		creditLine(revenue.AccountID, 500),
	})

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.PostEntry(ctx, entry.EntryID, "same-key", s.userID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}
	s.True(s.balance(cash.AccountID).Equal(decimal.NewFromInt(500)), "deltas applied exactly once despite concurrent retries")
}

func (s *PostingServiceTestSuite) TestConcurrentPostsWithDistinctKeysApplyOnce() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-C3", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 500),
		creditLine(revenue.AccountID, 500),
	})

	// Two clients retrying the same post under unrelated keys must not
	// double-apply the entry's deltas.
	const workers = 2
	var wg sync.WaitGroup
	receipts := make([]*domain.PostingReceipt, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			receipts[i], errs[i] = s.service.PostEntry(ctx, entry.EntryID, fmt.Sprintf("attempt-%d", i), s.userID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		s.NoError(errs[i])
		s.Require().NotNil(receipts[i])
		s.Equal(entry.EntryID, receipts[i].EntryID)
	}
	s.Equal(receipts[0].IdempotencyKey, receipts[1].IdempotencyKey, "both callers see the winning receipt")
	s.True(s.balance(cash.AccountID).Equal(decimal.NewFromInt(500)), "deltas applied exactly once")
	s.True(s.balance(revenue.AccountID).Equal(decimal.NewFromInt(500)))
}

func (s *PostingServiceTestSuite) TestPostAtomicallyRejectsSecondReceiptForSameEntry() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-C4", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 100),
		creditLine(revenue.AccountID, 100),
	})

	_, err := s.service.PostEntry(ctx, entry.EntryID, "first-key", s.userID)
	s.Require().NoError(err)

	// A unit reaching the repository with a fresh key but an already-receipted
	// entry must be rejected before any delta is applied.
	unit := portsrepo.PostingUnit{
		BalanceDeltas: map[string]decimal.Decimal{cash.AccountID: decimal.NewFromInt(100)},
		Receipts: []domain.PostingReceipt{{
			IdempotencyKey:     "second-key",
			EntryID:            entry.EntryID,
			AffectedAccountIDs: []string{cash.AccountID},
			PostedAt:           time.Now().UTC(),
			PostedBy:           s.userID,
		}},
	}
	err = s.postingRepo.PostAtomically(ctx, unit)
	s.ErrorIs(err, apperrors.ErrDuplicate)
	s.True(s.balance(cash.AccountID).Equal(decimal.NewFromInt(100)), "balance unchanged by the rejected unit")
}

func (s *PostingServiceTestSuite) TestConcurrentPostsToSharedAccountSerialize() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	const workers = 10
	entries := make([]domain.JournalEntry, workers)
	for i := 0; i < workers; i++ {
		entries[i] = s.newApprovedEntry(fmt.Sprintf("JE-C2-%d", i), time.Now().UTC(), []domain.JournalEntryLine{
			debitLine(cash.AccountID, 100),
			creditLine(revenue.AccountID, 100),
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.service.PostEntry(ctx, entries[i].EntryID, fmt.Sprintf("c2-%d", i), s.userID)
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	s.True(s.balance(cash.AccountID).Equal(decimal.NewFromInt(100*workers)),
		"final balance equals the sum of all deltas in some serial order")
}

func (s *PostingServiceTestSuite) TestReverseEntryRestoresBalances() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-R1", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 500),
		creditLine(revenue.AccountID, 500),
	})
	_, err := s.service.PostEntry(ctx, entry.EntryID, "post-r1", s.userID)
	s.Require().NoError(err)

	reversing, err := s.service.ReverseEntry(ctx, entry.EntryID, time.Now().UTC(), "duplicate billing", s.userID)
	s.Require().NoError(err)

	s.Equal(domain.EntryPosted, reversing.Status)
	s.Equal("REV-JE-R1", reversing.ReferenceNumber)
	s.Require().NotNil(reversing.ReversesEntryID)
	s.Equal(entry.EntryID, *reversing.ReversesEntryID)

	// Sides swapped, amounts preserved.
	s.Require().Len(reversing.Lines, 2)
	for _, l := range reversing.Lines {
		switch l.AccountID {
		case cash.AccountID:
			s.True(l.Credit.Equal(decimal.NewFromInt(500)))
			s.True(l.Debit.IsZero())
		case revenue.AccountID:
			s.True(l.Debit.Equal(decimal.NewFromInt(500)))
			s.True(l.Credit.IsZero())
		default:
			s.Failf("unexpected account", "account %s", l.AccountID)
		}
	}

	original, err := s.entryRepo.FindEntryByID(ctx, entry.EntryID)
	s.Require().NoError(err)
	s.Equal(domain.EntryReversed, original.Status)
	s.Require().NotNil(original.ReversedByEntryID)
	s.Equal(reversing.EntryID, *original.ReversedByEntryID)

	// Original lines untouched.
	s.Require().Len(original.Lines, 2)
	s.True(original.TotalDebits().Equal(decimal.NewFromInt(500)))

	s.True(s.balance(cash.AccountID).IsZero())
	s.True(s.balance(revenue.AccountID).IsZero())
}

func (s *PostingServiceTestSuite) TestReverseEntryTwiceRejected() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-R2", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 100),
		creditLine(revenue.AccountID, 100),
	})
	_, err := s.service.PostEntry(ctx, entry.EntryID, "post-r2", s.userID)
	s.Require().NoError(err)

	_, err = s.service.ReverseEntry(ctx, entry.EntryID, time.Now().UTC(), "first", s.userID)
	s.Require().NoError(err)

	_, err = s.service.ReverseEntry(ctx, entry.EntryID, time.Now().UTC(), "second", s.userID)
	s.ErrorIs(err, domain.ErrEntryAlreadyReversed)

	s.True(s.balance(cash.AccountID).IsZero(), "second reversal applied nothing")
}

func (s *PostingServiceTestSuite) TestReverseUnpostedEntryRejected() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-R3", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 100),
		creditLine(revenue.AccountID, 100),
	})

	_, err := s.service.ReverseEntry(ctx, entry.EntryID, time.Now().UTC(), "not posted yet", s.userID)
	s.ErrorIs(err, domain.ErrEntryNotPosted)
}

func (s *PostingServiceTestSuite) TestReverseIntoClosedPeriodRejected() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	entry := s.newApprovedEntry("JE-R4", time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 100),
		creditLine(revenue.AccountID, 100),
	})
	_, err := s.service.PostEntry(ctx, entry.EntryID, "post-r4", s.userID)
	s.Require().NoError(err)

	period := domain.AccountingPeriod{
		PeriodID:    uuid.NewString(),
		Name:        "2025-07",
		StartDate:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
		Status:      domain.PeriodClosed,
		AuditFields: domain.NewAuditFields(s.userID, time.Now().UTC()),
	}
	s.Require().NoError(s.periodRepo.SavePeriod(ctx, period))

	_, err = s.service.ReverseEntry(ctx, entry.EntryID, time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC), "late fix", s.userID)
	s.ErrorIs(err, domain.ErrPeriodClosed)
}

func (s *PostingServiceTestSuite) TestPostPublishesEntryPostedEvent() {
	ctx := context.Background()
	cash := s.newAccount("1000", domain.Asset)
	revenue := s.newAccount("4000", domain.Revenue)

	var mu sync.Mutex
	var received []events.EntryPosted
	s.publisher.Subscribe(func(ctx context.Context, event events.EntryPosted) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
	})

	entry := s.newApprovedEntry("JE-E1", time.Now().UTC(), []domain.JournalEntryLine{
		debitLine(cash.AccountID, 10),
		creditLine(revenue.AccountID, 10),
	})
	_, err := s.service.PostEntry(ctx, entry.EntryID, "post-e1", s.userID)
	s.Require().NoError(err)

	mu.Lock()
	defer mu.Unlock()
	s.Require().Len(received, 1)
	s.Equal(entry.EntryID, received[0].EntryID)
	s.ElementsMatch([]string{cash.AccountID, revenue.AccountID}, received[0].AffectedAccountIDs)
}

func TestPostingService(t *testing.T) {
	suite.Run(t, new(PostingServiceTestSuite))
}
