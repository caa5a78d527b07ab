package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portsrepo "github.com/finsuite/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/finsuite/ledger_engine/internal/core/ports/services"
	"github.com/finsuite/ledger_engine/internal/dto"
	"github.com/finsuite/ledger_engine/internal/middleware"
)

var (
	ErrPeriodNotFound          = errors.New("accounting period not found")
	ErrPeriodHasPendingEntries = errors.New("accounting period has unposted entries")
	ErrPeriodOverlap           = errors.New("accounting period overlaps an existing period")
)

// periodService owns the administrative accounting period lifecycle.
type periodService struct {
	periodRepo portsrepo.PeriodRepositoryFacade
	entryRepo  portsrepo.EntryReader
}

// NewPeriodService creates a new accounting period service.
func NewPeriodService(periodRepo portsrepo.PeriodRepositoryFacade, entryRepo portsrepo.EntryReader) portssvc.PeriodSvcFacade {
	return &periodService{periodRepo: periodRepo, entryRepo: entryRepo}
}

var _ portssvc.PeriodSvcFacade = (*periodService)(nil)

// CreatePeriod opens a new fiscal window.
func (s *periodService) CreatePeriod(ctx context.Context, req dto.CreatePeriodRequest, creatorUserID string) (*domain.AccountingPeriod, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !req.EndDate.After(req.StartDate) {
		return nil, domain.ErrPeriodInvalidRange
	}

	existing, err := s.periodRepo.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	for _, p := range existing {
		if req.StartDate.Before(p.EndDate) && p.StartDate.Before(req.EndDate) {
			return nil, fmt.Errorf("%w: %s overlaps %s", ErrPeriodOverlap, req.Name, p.Name)
		}
	}

	now := time.Now().UTC()
	period := domain.AccountingPeriod{
		PeriodID:    uuid.NewString(),
		Name:        req.Name,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      domain.PeriodOpen,
		AuditFields: domain.NewAuditFields(creatorUserID, now),
	}

	if err := s.periodRepo.SavePeriod(ctx, period); err != nil {
		logger.Error("Failed to save accounting period", slog.String("error", err.Error()), slog.String("name", req.Name))
		return nil, fmt.Errorf("failed to save accounting period: %w", err)
	}

	logger.Info("Accounting period created", slog.String("period_id", period.PeriodID), slog.String("name", period.Name))
	return &period, nil
}

// GetPeriodByID retrieves a period by ID.
func (s *periodService) GetPeriodByID(ctx context.Context, periodID string) (*domain.AccountingPeriod, error) {
	period, err := s.periodRepo.FindPeriodByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrPeriodNotFound, periodID)
		}
		return nil, fmt.Errorf("failed to find period %s: %w", periodID, err)
	}
	return period, nil
}

// ListPeriods retrieves all periods ordered by start date.
func (s *periodService) ListPeriods(ctx context.Context) ([]domain.AccountingPeriod, error) {
	periods, err := s.periodRepo.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	return periods, nil
}

// IsOpen reports whether the period is open and its window contains the date.
func (s *periodService) IsOpen(ctx context.Context, periodID string, txDate time.Time) (bool, error) {
	period, err := s.GetPeriodByID(ctx, periodID)
	if err != nil {
		return false, err
	}
	return period.IsOpen() && period.Contains(txDate), nil
}

// ClosePeriod closes a period. The close hard-blocks while any entry that
// references the period is still DRAFT, SUBMITTED, or approved-but-unposted.
func (s *periodService) ClosePeriod(ctx context.Context, periodID string, userID string) (*domain.AccountingPeriod, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	period, err := s.GetPeriodByID(ctx, periodID)
	if err != nil {
		return nil, err
	}

	pending, err := s.entryRepo.CountUnpostedByPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unposted entries for period %s: %w", periodID, err)
	}
	if pending > 0 {
		return nil, fmt.Errorf("%w: %d unposted entries reference period %s", ErrPeriodHasPendingEntries, pending, period.Name)
	}

	if err := period.MarkClosed(userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.periodRepo.UpdatePeriod(ctx, *period); err != nil {
		return nil, fmt.Errorf("failed to update period %s: %w", periodID, err)
	}

	logger.Info("Accounting period closed", slog.String("period_id", periodID), slog.String("name", period.Name))
	return period, nil
}

// ReopenPeriod reopens a closed period with an audited justification. Entries
// subsequently posted into the period carry the PostedToReopenedPeriod marker.
func (s *periodService) ReopenPeriod(ctx context.Context, periodID string, justification string, userID string) (*domain.AccountingPeriod, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if justification == "" {
		return nil, fmt.Errorf("%w: reopen justification is required", apperrors.ErrValidation)
	}

	period, err := s.GetPeriodByID(ctx, periodID)
	if err != nil {
		return nil, err
	}

	if err := period.MarkReopened(userID, justification, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.periodRepo.UpdatePeriod(ctx, *period); err != nil {
		return nil, fmt.Errorf("failed to update period %s: %w", periodID, err)
	}

	logger.Warn("Accounting period reopened", slog.String("period_id", periodID), slog.String("name", period.Name), slog.String("justification", justification))
	return period, nil
}
