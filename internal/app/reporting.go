/**
 * @description
 * Reconciliation and reporting: read-only aggregations over offers and
 * payout records. Nothing in here mutates state.
 */
package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/shadea75/coachingmatch-sub000/internal/domain"
)

// ReportRepository defines the aggregation queries the reporting service
// needs.
type ReportRepository interface {
	CoachEarningsSummary(ctx context.Context, coachID uuid.UUID) (*domain.CoachSummary, error)
	ClosingRateCounts(ctx context.Context) (accepted, decided int64, err error)
	PendingPayoutTotals(ctx context.Context) ([]domain.PendingPayoutTotal, error)
}

// ReportingService exposes the settlement read model.
type ReportingService struct {
	repo ReportRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(repo ReportRepository) *ReportingService {
	return &ReportingService{repo: repo}
}

// GetCoachSummary returns a coach's settled totals and monthly breakdown.
func (s *ReportingService) GetCoachSummary(ctx context.Context, coachID uuid.UUID) (*domain.CoachSummary, error) {
	return s.repo.CoachEarningsSummary(ctx, coachID)
}

// GetClosingRate returns accepted offers over all decided offers. With no
// decided offers the rate is 0, never a division by zero.
func (s *ReportingService) GetClosingRate(ctx context.Context) (*domain.ClosingRate, error) {
	accepted, decided, err := s.repo.ClosingRateCounts(ctx)
	if err != nil {
		return nil, err
	}

	rate := &domain.ClosingRate{Accepted: accepted, Decided: decided}
	if decided > 0 {
		rate.Rate = float64(accepted) / float64(decided)
	}
	return rate, nil
}

// GetPendingPayoutTotals returns open payout counts and amounts by status.
func (s *ReportingService) GetPendingPayoutTotals(ctx context.Context) ([]domain.PendingPayoutTotal, error) {
	return s.repo.PendingPayoutTotals(ctx)
}
