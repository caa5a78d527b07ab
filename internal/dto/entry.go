package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsuite/ledger_engine/internal/core/domain"
)

// CreateLineRequest is one debit-or-credit line in a create/add-line payload.
// Exactly one of Debit/Credit must be positive; the service enforces this.
type CreateLineRequest struct {
	AccountID string          `json:"accountID" binding:"required"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo"`
}

// CreateEntryRequest is the payload for creating a DRAFT journal entry.
type CreateEntryRequest struct {
	Date            time.Time           `json:"date" binding:"required"`
	ReferenceNumber string              `json:"referenceNumber" binding:"required"`
	Source          string              `json:"source" binding:"required"`
	Description     string              `json:"description"`
	PeriodID        *string             `json:"periodID"`
	Lines           []CreateLineRequest `json:"lines" binding:"required,min=2,dive"`
	IdempotencyKey  string              `json:"idempotencyKey"`
}

// RejectRequest carries the reviewer's reason for a rejection.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// LineResponse is the line representation returned to clients.
type LineResponse struct {
	LineID    string          `json:"lineID"`
	AccountID string          `json:"accountID"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo,omitempty"`
}

// EntryResponse is the journal entry representation returned to clients.
type EntryResponse struct {
	EntryID                string         `json:"entryID"`
	Date                   time.Time      `json:"date"`
	ReferenceNumber        string         `json:"referenceNumber"`
	Source                 string         `json:"source"`
	Description            string         `json:"description,omitempty"`
	Status                 string         `json:"status"`
	ApprovalStatus         string         `json:"approvalStatus"`
	ApprovedBy             string         `json:"approvedBy,omitempty"`
	ApprovedAt             *time.Time     `json:"approvedAt,omitempty"`
	RejectionReason        string         `json:"rejectionReason,omitempty"`
	PeriodID               *string        `json:"periodID,omitempty"`
	BatchID                *string        `json:"batchID,omitempty"`
	ReversedByEntryID      *string        `json:"reversedByEntryID,omitempty"`
	ReversesEntryID        *string        `json:"reversesEntryID,omitempty"`
	PostedToReopenedPeriod bool           `json:"postedToReopenedPeriod,omitempty"`
	Lines                  []LineResponse `json:"lines"`
	CreatedAt              time.Time      `json:"createdAt"`
	CreatedBy              string         `json:"createdBy"`
}

// ToEntryResponse converts a domain.JournalEntry to its response DTO.
func ToEntryResponse(e *domain.JournalEntry) EntryResponse {
	lines := make([]LineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = LineResponse{
			LineID:    l.LineID,
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Memo:      l.Memo,
		}
	}
	return EntryResponse{
		EntryID:                e.EntryID,
		Date:                   e.Date,
		ReferenceNumber:        e.ReferenceNumber,
		Source:                 e.Source,
		Description:            e.Description,
		Status:                 string(e.Status),
		ApprovalStatus:         string(e.ApprovalStatus),
		ApprovedBy:             e.ApprovedBy,
		ApprovedAt:             e.ApprovedAt,
		RejectionReason:        e.RejectionReason,
		PeriodID:               e.PeriodID,
		BatchID:                e.BatchID,
		ReversedByEntryID:      e.ReversedByEntryID,
		ReversesEntryID:        e.ReversesEntryID,
		PostedToReopenedPeriod: e.PostedToReopenedPeriod,
		Lines:                  lines,
		CreatedAt:              e.CreatedAt,
		CreatedBy:              e.CreatedBy,
	}
}

// ToEntryResponses converts a slice of entries.
func ToEntryResponses(entries []domain.JournalEntry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToEntryResponse(&entries[i])
	}
	return responses
}
