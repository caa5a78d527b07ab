package domain

import "time"

// PostingReceipt is the durable record of one completed posting attempt.
// It is written in the same transaction that applies balance deltas, so a
// retried Post with a known idempotency key returns the receipt instead of
// re-applying the entry.
type PostingReceipt struct {
	IdempotencyKey     string    `json:"idempotencyKey"` // Unique
	EntryID            string    `json:"entryID"`
	BatchID            *string   `json:"batchID"` // Set when the entry posted as part of a batch
	AffectedAccountIDs []string  `json:"affectedAccountIDs"`
	PostedAt           time.Time `json:"postedAt"`
	PostedBy           string    `json:"postedBy"`
}
