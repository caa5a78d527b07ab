package dto

import (
	"time"

	"github.com/finsuite/ledger_engine/internal/core/domain"
)

// ReverseEntryRequest is the payload for reversing a posted entry.
type ReverseEntryRequest struct {
	ReversalDate time.Time `json:"reversalDate" binding:"required"`
	Reason       string    `json:"reason" binding:"required"`
}

// ReceiptResponse is the posting receipt returned for post attempts.
// A retried post with the same idempotency key returns the same receipt.
type ReceiptResponse struct {
	IdempotencyKey     string    `json:"idempotencyKey"`
	EntryID            string    `json:"entryID"`
	BatchID            *string   `json:"batchID,omitempty"`
	AffectedAccountIDs []string  `json:"affectedAccountIDs"`
	PostedAt           time.Time `json:"postedAt"`
	PostedBy           string    `json:"postedBy"`
}

// ToReceiptResponse converts a domain.PostingReceipt to its response DTO.
func ToReceiptResponse(r *domain.PostingReceipt) ReceiptResponse {
	return ReceiptResponse{
		IdempotencyKey:     r.IdempotencyKey,
		EntryID:            r.EntryID,
		BatchID:            r.BatchID,
		AffectedAccountIDs: r.AffectedAccountIDs,
		PostedAt:           r.PostedAt,
		PostedBy:           r.PostedBy,
	}
}

// ToReceiptResponses converts a slice of receipts.
func ToReceiptResponses(receipts []domain.PostingReceipt) []ReceiptResponse {
	responses := make([]ReceiptResponse, len(receipts))
	for i := range receipts {
		responses[i] = ToReceiptResponse(&receipts[i])
	}
	return responses
}
