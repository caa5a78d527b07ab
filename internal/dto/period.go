package dto

import (
	"time"

	"github.com/finsuite/ledger_engine/internal/core/domain"
)

// CreatePeriodRequest is the payload for opening a fiscal period.
type CreatePeriodRequest struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// ReopenPeriodRequest carries the audited justification for a reopen.
type ReopenPeriodRequest struct {
	Justification string `json:"justification" binding:"required"`
}

// PeriodResponse is the period representation returned to clients.
type PeriodResponse struct {
	PeriodID            string     `json:"periodID"`
	Name                string     `json:"name"`
	StartDate           time.Time  `json:"startDate"`
	EndDate             time.Time  `json:"endDate"`
	Status              string     `json:"status"`
	ReopenedAt          *time.Time `json:"reopenedAt,omitempty"`
	ReopenJustification string     `json:"reopenJustification,omitempty"`
}

// ToPeriodResponse converts a domain.AccountingPeriod to its response DTO.
func ToPeriodResponse(p *domain.AccountingPeriod) PeriodResponse {
	return PeriodResponse{
		PeriodID:            p.PeriodID,
		Name:                p.Name,
		StartDate:           p.StartDate,
		EndDate:             p.EndDate,
		Status:              string(p.Status),
		ReopenedAt:          p.ReopenedAt,
		ReopenJustification: p.ReopenJustification,
	}
}

// ToPeriodResponses converts a slice of periods.
func ToPeriodResponses(periods []domain.AccountingPeriod) []PeriodResponse {
	responses := make([]PeriodResponse, len(periods))
	for i := range periods {
		responses[i] = ToPeriodResponse(&periods[i])
	}
	return responses
}
