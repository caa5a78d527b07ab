package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus is the posting lifecycle state of a journal entry.
type EntryStatus string

const (
	EntryDraft     EntryStatus = "DRAFT"
	EntrySubmitted EntryStatus = "SUBMITTED"
	EntryPosted    EntryStatus = "POSTED"
	EntryReversed  EntryStatus = "REVERSED"
)

// ApprovalStatus is the review state of an entry or batch.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

var (
	// ErrEntryNotEditable is returned when lines are modified outside DRAFT.
	ErrEntryNotEditable = errors.New("journal entry is not editable in its current status")
	// ErrEntryNotSubmitted is returned when approve/reject is attempted outside SUBMITTED.
	ErrEntryNotSubmitted = errors.New("journal entry is not submitted for approval")
	// ErrEntryNotApproved is returned when posting an entry that was never approved.
	ErrEntryNotApproved = errors.New("journal entry is not approved")
	// ErrEntryNotPosted is returned when reversing an entry that is not posted.
	ErrEntryNotPosted = errors.New("journal entry is not posted")
	// ErrEntryAlreadyReversed is returned when reversing an entry a second time.
	ErrEntryAlreadyReversed = errors.New("journal entry is already reversed")
	// ErrLineNotFound is returned when removing a line the entry does not own.
	ErrLineNotFound = errors.New("journal entry line not found")
)

// JournalEntryLine is a single debit-or-credit line owned by its parent entry.
// Exactly one of Debit/Credit is nonzero.
type JournalEntryLine struct {
	LineID    string          `json:"lineID"`    // Primary Key (UUID)
	EntryID   string          `json:"entryID"`   // FK -> journal_entries.entry_id
	AccountID string          `json:"accountID"` // FK -> accounts.account_id
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo"` // Nullable
}

// IsDebit reports whether the line is the debit side.
func (l JournalEntryLine) IsDebit() bool {
	return l.Debit.IsPositive()
}

// Amount returns the nonzero side of the line.
func (l JournalEntryLine) Amount() decimal.Decimal {
	if l.IsDebit() {
		return l.Debit
	}
	return l.Credit
}

// JournalEntry is the transaction header plus its ordered lines.
// Once POSTED the lines and amounts are append-only; corrections happen via
// a reversing entry linked through ReversedByEntryID/ReversesEntryID.
type JournalEntry struct {
	EntryID         string             `json:"entryID"`         // Primary Key (UUID)
	Date            time.Time          `json:"date"`            // Effective transaction date
	ReferenceNumber string             `json:"referenceNumber"` // Unique human reference
	Source          string             `json:"source"`          // Originating module/system
	Description     string             `json:"description"`
	Lines           []JournalEntryLine `json:"lines"`
	Status          EntryStatus        `json:"status"`
	ApprovalStatus  ApprovalStatus     `json:"approvalStatus"`
	ApprovedBy      string             `json:"approvedBy"`      // Reviewer identity (approve or reject)
	ApprovedAt      *time.Time         `json:"approvedAt"`
	RejectionReason string             `json:"rejectionReason"` // Set when rejected
	PeriodID        *string            `json:"periodID"`        // Nullable FK -> accounting_periods
	BatchID         *string            `json:"batchID"`         // Nullable FK -> posting_batches
	// Symmetric reversal link: the original carries ReversedByEntryID, the
	// reversing entry carries ReversesEntryID.
	ReversedByEntryID       *string `json:"reversedByEntryID"`
	ReversesEntryID         *string `json:"reversesEntryID"`
	PostedToReopenedPeriod  bool    `json:"postedToReopenedPeriod"` // Audit marker, see AccountingPeriod.Reopen
	// CreationKey is the client-supplied idempotency key from the create
	// request; a retried create with the same key returns this entry.
	CreationKey string `json:"-"`
	AuditFields
}

// TotalDebits sums the debit side of all lines.
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// TotalCredits sums the credit side of all lines.
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// AccountIDs returns the distinct account IDs referenced by the entry's lines.
func (e *JournalEntry) AccountIDs() []string {
	seen := make(map[string]struct{}, len(e.Lines))
	ids := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if _, ok := seen[l.AccountID]; !ok {
			seen[l.AccountID] = struct{}{}
			ids = append(ids, l.AccountID)
		}
	}
	return ids
}

// AddLine appends a line. Allowed only while the entry is DRAFT.
func (e *JournalEntry) AddLine(line JournalEntryLine) error {
	if e.Status != EntryDraft {
		return fmt.Errorf("%w: status is %s", ErrEntryNotEditable, e.Status)
	}
	line.EntryID = e.EntryID
	e.Lines = append(e.Lines, line)
	return nil
}

// RemoveLine deletes a line by ID. Allowed only while the entry is DRAFT.
func (e *JournalEntry) RemoveLine(lineID string) error {
	if e.Status != EntryDraft {
		return fmt.Errorf("%w: status is %s", ErrEntryNotEditable, e.Status)
	}
	for i, l := range e.Lines {
		if l.LineID == lineID {
			e.Lines = append(e.Lines[:i], e.Lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: line %s on entry %s", ErrLineNotFound, lineID, e.EntryID)
}

// MarkSubmitted transitions DRAFT -> SUBMITTED. Balance validation is the
// caller's responsibility (the service re-validates before calling this).
func (e *JournalEntry) MarkSubmitted(actorID string, now time.Time) error {
	if e.Status != EntryDraft {
		return fmt.Errorf("%w: cannot submit from status %s", ErrEntryNotEditable, e.Status)
	}
	e.Status = EntrySubmitted
	e.ApprovalStatus = ApprovalPending
	e.Touch(actorID, now)
	return nil
}

// MarkApproved records approval of a SUBMITTED entry.
func (e *JournalEntry) MarkApproved(approverID string, now time.Time) error {
	if e.Status != EntrySubmitted {
		return fmt.Errorf("%w: status is %s", ErrEntryNotSubmitted, e.Status)
	}
	e.ApprovalStatus = ApprovalApproved
	e.ApprovedBy = approverID
	e.ApprovedAt = &now
	e.Touch(approverID, now)
	return nil
}

// MarkRejected records rejection of a SUBMITTED entry and returns it to DRAFT
// so the author can correct and resubmit.
func (e *JournalEntry) MarkRejected(approverID, reason string, now time.Time) error {
	if e.Status != EntrySubmitted {
		return fmt.Errorf("%w: status is %s", ErrEntryNotSubmitted, e.Status)
	}
	e.Status = EntryDraft
	e.ApprovalStatus = ApprovalRejected
	e.ApprovedBy = approverID
	e.ApprovedAt = &now
	e.RejectionReason = reason
	e.Touch(approverID, now)
	return nil
}

// MarkPosted transitions an approved SUBMITTED entry to POSTED. Only the
// posting coordinator calls this, inside the posting transaction.
func (e *JournalEntry) MarkPosted(actorID string, now time.Time) error {
	if e.Status == EntryPosted {
		return nil // already posted, idempotent
	}
	if e.Status != EntrySubmitted {
		return fmt.Errorf("%w: cannot post from status %s", ErrEntryNotSubmitted, e.Status)
	}
	if e.ApprovalStatus != ApprovalApproved {
		return fmt.Errorf("%w: approval status is %s", ErrEntryNotApproved, e.ApprovalStatus)
	}
	e.Status = EntryPosted
	e.Touch(actorID, now)
	return nil
}

// MarkReversed closes a POSTED entry and links its reversing entry.
func (e *JournalEntry) MarkReversed(reversingEntryID, actorID string, now time.Time) error {
	if e.Status == EntryReversed || e.ReversedByEntryID != nil {
		return fmt.Errorf("%w: entry %s", ErrEntryAlreadyReversed, e.EntryID)
	}
	if e.Status != EntryPosted {
		return fmt.Errorf("%w: status is %s", ErrEntryNotPosted, e.Status)
	}
	e.Status = EntryReversed
	e.ReversedByEntryID = &reversingEntryID
	e.Touch(actorID, now)
	return nil
}
