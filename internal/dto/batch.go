package dto

import (
	"time"

	"github.com/finsuite/ledger_engine/internal/core/domain"
)

// CreateBatchRequest is the payload for opening a posting batch.
type CreateBatchRequest struct {
	BatchDate   time.Time `json:"batchDate" binding:"required"`
	Description string    `json:"description"`
}

// AttachEntryRequest references the entry to attach to an open batch.
type AttachEntryRequest struct {
	EntryID string `json:"entryID" binding:"required"`
}

// PostRequest carries the caller-supplied idempotency key for a post attempt.
type PostRequest struct {
	IdempotencyKey string `json:"idempotencyKey"`
}

// BatchResponse is the batch representation returned to clients.
type BatchResponse struct {
	BatchID         string     `json:"batchID"`
	BatchNumber     string     `json:"batchNumber"`
	BatchDate       time.Time  `json:"batchDate"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	EntryIDs        []string   `json:"entryIDs"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// ToBatchResponse converts a domain.PostingBatch to its response DTO.
func ToBatchResponse(b *domain.PostingBatch) BatchResponse {
	return BatchResponse{
		BatchID:         b.BatchID,
		BatchNumber:     b.BatchNumber,
		BatchDate:       b.BatchDate,
		Description:     b.Description,
		Status:          string(b.Status),
		EntryIDs:        b.EntryIDs,
		ApprovedBy:      b.ApprovedBy,
		ApprovedAt:      b.ApprovedAt,
		RejectionReason: b.RejectionReason,
		CreatedAt:       b.CreatedAt,
	}
}

// ToBatchResponses converts a slice of batches.
func ToBatchResponses(batches []domain.PostingBatch) []BatchResponse {
	responses := make([]BatchResponse, len(batches))
	for i := range batches {
		responses[i] = ToBatchResponse(&batches[i])
	}
	return responses
}
