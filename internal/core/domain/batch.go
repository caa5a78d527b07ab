package domain

import (
	"errors"
	"fmt"
	"time"
)

// BatchStatus is the lifecycle state of a posting batch.
type BatchStatus string

const (
	BatchOpen      BatchStatus = "OPEN"
	BatchSubmitted BatchStatus = "SUBMITTED"
	BatchApproved  BatchStatus = "APPROVED"
	BatchRejected  BatchStatus = "REJECTED"
	BatchPosted    BatchStatus = "POSTED" // terminal
)

var (
	// ErrBatchNotOpen is returned when attaching entries to a non-OPEN batch.
	ErrBatchNotOpen = errors.New("posting batch is not open")
	// ErrBatchNotSubmitted is returned when approving/rejecting a batch that is not SUBMITTED.
	ErrBatchNotSubmitted = errors.New("posting batch is not submitted for approval")
	// ErrBatchNotApproved is returned when posting a batch that is not APPROVED.
	ErrBatchNotApproved = errors.New("posting batch is not approved")
	// ErrBatchEmpty is returned when submitting or posting a batch with no entries.
	ErrBatchEmpty = errors.New("posting batch has no entries")
)

// PostingBatch groups approved journal entries for joint approval and atomic
// posting. The batch references entries; it does not own their lifecycle.
// Batch approval sits on top of entry-level approval (two-person rule), so
// rejecting a batch never reverts a member entry's own approval.
type PostingBatch struct {
	BatchID         string      `json:"batchID"`     // Primary Key (UUID)
	BatchNumber     string      `json:"batchNumber"` // Unique human identifier (e.g. "BATCH-2025-09-001")
	BatchDate       time.Time   `json:"batchDate"`
	Description     string      `json:"description"`
	EntryIDs        []string    `json:"entryIDs"` // References, attach order preserved
	Status          BatchStatus `json:"status"`
	ApprovedBy      string      `json:"approvedBy"`
	ApprovedAt      *time.Time  `json:"approvedAt"`
	RejectionReason string      `json:"rejectionReason"`
	AuditFields
}

// AttachEntry adds an entry reference while the batch is OPEN.
func (b *PostingBatch) AttachEntry(entryID string) error {
	if b.Status != BatchOpen {
		return fmt.Errorf("%w: status is %s", ErrBatchNotOpen, b.Status)
	}
	for _, id := range b.EntryIDs {
		if id == entryID {
			return nil // already attached
		}
	}
	b.EntryIDs = append(b.EntryIDs, entryID)
	return nil
}

// MarkSubmitted transitions OPEN -> SUBMITTED.
func (b *PostingBatch) MarkSubmitted(actorID string, now time.Time) error {
	if b.Status != BatchOpen {
		return fmt.Errorf("%w: cannot submit from status %s", ErrBatchNotOpen, b.Status)
	}
	if len(b.EntryIDs) == 0 {
		return fmt.Errorf("%w: batch %s", ErrBatchEmpty, b.BatchNumber)
	}
	b.Status = BatchSubmitted
	b.Touch(actorID, now)
	return nil
}

// MarkApproved records approval of a SUBMITTED batch.
func (b *PostingBatch) MarkApproved(approverID string, now time.Time) error {
	if b.Status != BatchSubmitted {
		return fmt.Errorf("%w: status is %s", ErrBatchNotSubmitted, b.Status)
	}
	b.Status = BatchApproved
	b.ApprovedBy = approverID
	b.ApprovedAt = &now
	b.Touch(approverID, now)
	return nil
}

// MarkRejected records rejection of a SUBMITTED batch. Member entries keep
// their own approval; the rejection only blocks batch posting.
func (b *PostingBatch) MarkRejected(approverID, reason string, now time.Time) error {
	if b.Status != BatchSubmitted {
		return fmt.Errorf("%w: status is %s", ErrBatchNotSubmitted, b.Status)
	}
	b.Status = BatchRejected
	b.ApprovedBy = approverID
	b.ApprovedAt = &now
	b.RejectionReason = reason
	b.Touch(approverID, now)
	return nil
}

// MarkPosted transitions an APPROVED batch to its terminal POSTED state.
// Only the posting coordinator calls this, inside the posting transaction.
func (b *PostingBatch) MarkPosted(actorID string, now time.Time) error {
	if b.Status == BatchPosted {
		return nil // already posted, idempotent
	}
	if b.Status != BatchApproved {
		return fmt.Errorf("%w: status is %s", ErrBatchNotApproved, b.Status)
	}
	b.Status = BatchPosted
	b.Touch(actorID, now)
	return nil
}
