package services

import (
	"context"
	"time"

	"github.com/finsuite/ledger_engine/internal/core/domain"
	"github.com/finsuite/ledger_engine/internal/dto"
)

// PeriodReaderSvc defines read operations for accounting periods.
type PeriodReaderSvc interface {
	// GetPeriodByID retrieves a period by ID.
	GetPeriodByID(ctx context.Context, periodID string) (*domain.AccountingPeriod, error)

	// ListPeriods retrieves all periods ordered by start date.
	ListPeriods(ctx context.Context) ([]domain.AccountingPeriod, error)

	// IsOpen reports whether the period is open and contains the transaction date.
	IsOpen(ctx context.Context, periodID string, txDate time.Time) (bool, error)
}

// PeriodWriterSvc defines the administrative period lifecycle.
type PeriodWriterSvc interface {
	// CreatePeriod opens a new fiscal window.
	CreatePeriod(ctx context.Context, req dto.CreatePeriodRequest, creatorUserID string) (*domain.AccountingPeriod, error)

	// ClosePeriod closes a period; hard-blocked while unposted entries reference it.
	ClosePeriod(ctx context.Context, periodID string, userID string) (*domain.AccountingPeriod, error)

	// ReopenPeriod reopens a closed period with an audited justification.
	ReopenPeriod(ctx context.Context, periodID string, justification string, userID string) (*domain.AccountingPeriod, error)
}

// PeriodSvcFacade combines all period-related service interfaces.
type PeriodSvcFacade interface {
	PeriodReaderSvc
	PeriodWriterSvc
}
