package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EntryPosted is emitted after a posting transaction commits. Read-model
// projections and reporting consume it; the engine itself never reads it back.
type EntryPosted struct {
	EntryID            string    `json:"entryID"`
	BatchID            *string   `json:"batchID"`
	AffectedAccountIDs []string  `json:"affectedAccountIDs"`
	PostedAt           time.Time `json:"postedAt"`
}

// Publisher delivers domain events to interested subscribers.
type Publisher interface {
	PublishEntryPosted(ctx context.Context, event EntryPosted)
}

// Subscriber receives posted-entry events.
type Subscriber func(ctx context.Context, event EntryPosted)

// InProcessPublisher fans events out synchronously to in-process subscribers.
// Delivery happens after commit, so a panicking subscriber cannot roll back a
// posting; panics are contained and logged.
type InProcessPublisher struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	logger      *slog.Logger
}

// NewInProcessPublisher creates a publisher with no subscribers.
func NewInProcessPublisher(logger *slog.Logger) *InProcessPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessPublisher{logger: logger}
}

// Subscribe registers a subscriber for future events.
func (p *InProcessPublisher) Subscribe(s Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, s)
}

// PublishEntryPosted delivers the event to every subscriber.
func (p *InProcessPublisher) PublishEntryPosted(ctx context.Context, event EntryPosted) {
	p.mu.RLock()
	subs := make([]Subscriber, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.RUnlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("entry posted subscriber panicked",
						slog.String("entry_id", event.EntryID), slog.Any("panic", r))
				}
			}()
			s(ctx, event)
		}()
	}
}

var _ Publisher = (*InProcessPublisher)(nil)
