package domain

import (
	"errors"
	"fmt"
	"time"
)

// PeriodStatus is the state of an accounting period.
type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "OPEN"
	PeriodClosed PeriodStatus = "CLOSED"
)

var (
	// ErrPeriodClosed is returned when posting into a CLOSED period.
	ErrPeriodClosed = errors.New("accounting period is closed")
	// ErrPeriodNotClosed is returned when reopening a period that is not CLOSED.
	ErrPeriodNotClosed = errors.New("accounting period is not closed")
	// ErrPeriodAlreadyClosed is returned when closing a CLOSED period again.
	ErrPeriodAlreadyClosed = errors.New("accounting period is already closed")
	// ErrPeriodInvalidRange is returned when the end date does not follow the start date.
	ErrPeriodInvalidRange = errors.New("accounting period end date must be after start date")
)

// AccountingPeriod is a fiscal window. No entry may post with a transaction
// date inside a CLOSED period. Reopening is an audited escape hatch: every
// entry posted into a reopened period is flagged PostedToReopenedPeriod.
type AccountingPeriod struct {
	PeriodID            string       `json:"periodID"` // Primary Key (UUID)
	Name                string       `json:"name"`     // e.g. "2025-09"
	StartDate           time.Time    `json:"startDate"`
	EndDate             time.Time    `json:"endDate"`
	Status              PeriodStatus `json:"status"`
	ReopenedAt          *time.Time   `json:"reopenedAt"`
	ReopenJustification string       `json:"reopenJustification"`
	AuditFields
}

// Contains reports whether the transaction date falls inside the period
// window (inclusive on both ends, date precision).
func (p *AccountingPeriod) Contains(txDate time.Time) bool {
	d := txDate.Truncate(24 * time.Hour)
	return !d.Before(p.StartDate.Truncate(24*time.Hour)) && !d.After(p.EndDate.Truncate(24*time.Hour))
}

// IsOpen reports whether the period accepts postings.
func (p *AccountingPeriod) IsOpen() bool {
	return p.Status == PeriodOpen
}

// WasReopened reports whether the period has ever been administratively reopened.
func (p *AccountingPeriod) WasReopened() bool {
	return p.ReopenedAt != nil
}

// MarkClosed transitions OPEN -> CLOSED. The service hard-blocks the close
// while unposted entries still reference the period.
func (p *AccountingPeriod) MarkClosed(actorID string, now time.Time) error {
	if p.Status == PeriodClosed {
		return fmt.Errorf("%w: period %s", ErrPeriodAlreadyClosed, p.Name)
	}
	p.Status = PeriodClosed
	p.Touch(actorID, now)
	return nil
}

// MarkReopened transitions CLOSED -> OPEN and records the justification.
func (p *AccountingPeriod) MarkReopened(actorID, justification string, now time.Time) error {
	if p.Status != PeriodClosed {
		return fmt.Errorf("%w: period %s has status %s", ErrPeriodNotClosed, p.Name, p.Status)
	}
	p.Status = PeriodOpen
	p.ReopenedAt = &now
	p.ReopenJustification = justification
	p.Touch(actorID, now)
	return nil
}
