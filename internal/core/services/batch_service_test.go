package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/finsuite/ledger_engine/internal/core/domain"
	portssvc "github.com/finsuite/ledger_engine/internal/core/ports/services"
	"github.com/finsuite/ledger_engine/internal/core/services"
	"github.com/finsuite/ledger_engine/internal/dto"
)

type BatchServiceTestSuite struct {
	suite.Suite
	mockBatchRepo *MockBatchRepository
	mockEntryRepo *MockEntryRepository
	service       portssvc.BatchSvcFacade
	userID        string
}

func (s *BatchServiceTestSuite) SetupTest() {
	s.mockBatchRepo = new(MockBatchRepository)
	s.mockEntryRepo = new(MockEntryRepository)
	s.service = services.NewBatchService(s.mockBatchRepo, s.mockEntryRepo)
	s.userID = uuid.NewString()
}

func (s *BatchServiceTestSuite) openBatch() *domain.PostingBatch {
	return &domain.PostingBatch{
		BatchID:     uuid.NewString(),
		BatchNumber: "BATCH-2025-09-01-abcd1234",
		BatchDate:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Status:      domain.BatchOpen,
		AuditFields: domain.NewAuditFields(s.userID, time.Now().UTC()),
	}
}

func (s *BatchServiceTestSuite) approvedEntry() *domain.JournalEntry {
	return &domain.JournalEntry{
		EntryID:        uuid.NewString(),
		Status:         domain.EntrySubmitted,
		ApprovalStatus: domain.ApprovalApproved,
	}
}

func (s *BatchServiceTestSuite) TestCreateBatchGeneratesNumber() {
	ctx := context.Background()
	req := dto.CreateBatchRequest{
		BatchDate:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Description: "September close",
	}
	s.mockBatchRepo.On("SaveBatch", ctx, mock.AnythingOfType("domain.PostingBatch")).Return(nil).Once()

	batch, err := s.service.CreateBatch(ctx, req, s.userID)

	s.Require().NoError(err)
	s.Equal(domain.BatchOpen, batch.Status)
	s.Regexp(`^BATCH-2025-09-01-[0-9a-f]{8}$`, batch.BatchNumber)
	s.Empty(batch.EntryIDs)
	s.mockBatchRepo.AssertExpectations(s.T())
}

func (s *BatchServiceTestSuite) TestAttachEntryRequiresEntryApproval() {
	ctx := context.Background()
	batch := s.openBatch()
	entry := s.approvedEntry()
	entry.ApprovalStatus = domain.ApprovalPending

	s.mockBatchRepo.On("FindBatchByID", ctx, batch.BatchID).Return(batch, nil).Once()
	s.mockEntryRepo.On("FindEntryByID", ctx, entry.EntryID).Return(entry, nil).Once()

	_, err := s.service.AttachEntry(ctx, batch.BatchID, entry.EntryID, s.userID)

	s.ErrorIs(err, services.ErrEntryNotApprovedForBatch)
	s.mockBatchRepo.AssertNotCalled(s.T(), "UpdateBatch", mock.Anything, mock.Anything)
}

func (s *BatchServiceTestSuite) TestAttachEntryToOpenBatch() {
	ctx := context.Background()
	batch := s.openBatch()
	entry := s.approvedEntry()

	s.mockBatchRepo.On("FindBatchByID", ctx, batch.BatchID).Return(batch, nil).Once()
	s.mockEntryRepo.On("FindEntryByID", ctx, entry.EntryID).Return(entry, nil).Once()
	s.mockBatchRepo.On("UpdateBatch", ctx, mock.MatchedBy(func(b domain.PostingBatch) bool {
		return len(b.EntryIDs) == 1 && b.EntryIDs[0] == entry.EntryID
	})).Return(nil).Once()

	updated, err := s.service.AttachEntry(ctx, batch.BatchID, entry.EntryID, s.userID)

	s.Require().NoError(err)
	s.Contains(updated.EntryIDs, entry.EntryID)
	s.mockBatchRepo.AssertExpectations(s.T())
}

func (s *BatchServiceTestSuite) TestAttachEntryTwiceIsIdempotent() {
	ctx := context.Background()
	batch := s.openBatch()
	entry := s.approvedEntry()
	batch.EntryIDs = []string{entry.EntryID}

	s.mockBatchRepo.On("FindBatchByID", ctx, batch.BatchID).Return(batch, nil).Once()
	s.mockEntryRepo.On("FindEntryByID", ctx, entry.EntryID).Return(entry, nil).Once()
	s.mockBatchRepo.On("UpdateBatch", ctx, mock.MatchedBy(func(b domain.PostingBatch) bool {
		return len(b.EntryIDs) == 1
	})).Return(nil).Once()

	updated, err := s.service.AttachEntry(ctx, batch.BatchID, entry.EntryID, s.userID)

	s.Require().NoError(err)
	s.Len(updated.EntryIDs, 1)
}

func (s *BatchServiceTestSuite) TestAttachEntryToSubmittedBatchRejected() {
	ctx := context.Background()
	batch := s.openBatch()
	batch.Status = domain.BatchSubmitted
	entry := s.approvedEntry()

	s.mockBatchRepo.On("FindBatchByID", ctx, batch.BatchID).Return(batch, nil).Once()
	s.mockEntryRepo.On("FindEntryByID", ctx, entry.EntryID).Return(entry, nil).Once()

	_, err := s.service.AttachEntry(ctx, batch.BatchID, entry.EntryID, s.userID)

	s.ErrorIs(err, domain.ErrBatchNotOpen)
}

func (s *BatchServiceTestSuite) TestSubmitEmptyBatchRejected() {
	ctx := context.Background()
	batch := s.openBatch()

	s.mockBatchRepo.On("FindBatchByID", ctx, batch.BatchID).Return(batch, nil).Once()

	_, err := s.service.SubmitBatch(ctx, batch.BatchID, s.userID)

	s.ErrorIs(err, domain.ErrBatchEmpty)
	s.mockBatchRepo.AssertNotCalled(s.T(), "UpdateBatch", mock.Anything, mock.Anything)
}

func (s *BatchServiceTestSuite) TestSubmitBatchTransitions() {
	ctx := context.Background()
	batch := s.openBatch()
	batch.EntryIDs = []string{uuid.NewString()}

	s.mockBatchRepo.On("FindBatchByID", ctx, batch.BatchID).Return(batch, nil).Once()
	s.mockBatchRepo.On("UpdateBatch", ctx, mock.MatchedBy(func(b domain.PostingBatch) bool {
		return b.Status == domain.BatchSubmitted
	})).Return(nil).Once()

	updated, err := s.service.SubmitBatch(ctx, batch.BatchID, s.userID)

	s.Require().NoError(err)
	s.Equal(domain.BatchSubmitted, updated.Status)
}

func (s *BatchServiceTestSuite) TestApproveSubmittedBatch() {
	ctx := context.Background()
	approverID := uuid.NewString()
	batch := s.openBatch()
	batch.EntryIDs = []string{uuid.NewString()}
	batch.Status = domain.BatchSubmitted

	s.mockBatchRepo.On("FindBatchByID", ctx, batch.BatchID).Return(batch, nil).Once()
	s.mockBatchRepo.On("UpdateBatch", ctx, mock.MatchedBy(func(b domain.PostingBatch) bool {
		return b.Status == domain.BatchApproved && b.ApprovedBy == approverID
	})).Return(nil).Once()

	updated, err := s.service.ApproveBatch(ctx, batch.BatchID, approverID)

	s.Require().NoError(err)
	s.Equal(domain.BatchApproved, updated.Status)
}

func (s *BatchServiceTestSuite) TestApproveOpenBatchRejected() {
	ctx := context.Background()
	batch := s.openBatch()

	s.mockBatchRepo.On("FindBatchByID", ctx, batch.BatchID).Return(batch, nil).Once()

	_, err := s.service.ApproveBatch(ctx, batch.BatchID, uuid.NewString())

	s.ErrorIs(err, domain.ErrBatchNotSubmitted)
}

func (s *BatchServiceTestSuite) TestRejectBatchIsTerminal() {
	ctx := context.Background()
	approverID := uuid.NewString()
	batch := s.openBatch()
	batch.EntryIDs = []string{uuid.NewString()}
	batch.Status = domain.BatchSubmitted

	s.mockBatchRepo.On("FindBatchByID", ctx, batch.BatchID).Return(batch, nil).Once()
	s.mockBatchRepo.On("UpdateBatch", ctx, mock.MatchedBy(func(b domain.PostingBatch) bool {
		return b.Status == domain.BatchRejected && b.RejectionReason == "duplicate of last week's run"
	})).Return(nil).Once()

	rejected, err := s.service.RejectBatch(ctx, batch.BatchID, approverID, "duplicate of last week's run")
	s.Require().NoError(err)
	s.Equal(domain.BatchRejected, rejected.Status)

	// A rejected batch never becomes submittable again.
	s.mockBatchRepo.On("FindBatchByID", ctx, batch.BatchID).Return(rejected, nil).Once()
	_, err = s.service.SubmitBatch(ctx, batch.BatchID, s.userID)
	s.ErrorIs(err, domain.ErrBatchNotOpen)
}

func TestBatchService(t *testing.T) {
	suite.Run(t, new(BatchServiceTestSuite))
}
