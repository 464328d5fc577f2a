/**
 * @description
 * Read-model queries for reconciliation and reporting. Aggregation happens
 * in SQL over indexed fields; nothing here mutates state.
 */
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/shadea75/coachingmatch-sub000/internal/domain"
)

// CoachEarningsSummary aggregates a coach's paid installments, including a
// monthly breakdown keyed YYYY-MM.
func (r *Repository) CoachEarningsSummary(ctx context.Context, coachID uuid.UUID) (*domain.CoachSummary, error) {
	summary := &domain.CoachSummary{CoachID: coachID}

	totalsQuery := `
		SELECT COUNT(*), COALESCE(SUM(i.coach_payout), 0), COALESCE(SUM(i.platform_fee), 0)
		FROM offer_installments i
		JOIN offers o ON o.id = i.offer_id
		WHERE o.coach_id = $1
		  AND i.status = 'paid'
	`
	if err := r.db.QueryRow(ctx, totalsQuery, coachID).Scan(
		&summary.PaidSessions,
		&summary.TotalEarnings,
		&summary.TotalPlatformFee,
	); err != nil {
		return nil, err
	}

	monthlyQuery := `
		SELECT to_char(i.paid_at, 'YYYY-MM') AS month,
		       COUNT(*),
		       COALESCE(SUM(i.coach_payout), 0),
		       COALESCE(SUM(i.platform_fee), 0)
		FROM offer_installments i
		JOIN offers o ON o.id = i.offer_id
		WHERE o.coach_id = $1
		  AND i.status = 'paid'
		GROUP BY month
		ORDER BY month ASC
	`
	rows, err := r.db.Query(ctx, monthlyQuery, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.MonthlyEarnings
		if err := rows.Scan(&m.Month, &m.PaidSessions, &m.Earnings, &m.PlatformFee); err != nil {
			return nil, err
		}
		summary.Monthly = append(summary.Monthly, m)
	}

	return summary, rows.Err()
}

// ClosingRateCounts returns accepted (revenue-generating) offers and all
// decided offers. The rate itself is derived by the caller.
func (r *Repository) ClosingRateCounts(ctx context.Context) (accepted, decided int64, err error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE status IN ('accepted', 'completed')),
		       COUNT(*) FILTER (WHERE status <> 'pending')
		FROM offers
	`
	if err := r.db.QueryRow(ctx, query).Scan(&accepted, &decided); err != nil {
		return 0, 0, err
	}
	return accepted, decided, nil
}

// PendingPayoutTotals returns count and gross sum of open payout records
// grouped by status.
func (r *Repository) PendingPayoutTotals(ctx context.Context) ([]domain.PendingPayoutTotal, error) {
	query := `
		SELECT payout_status, COUNT(*), COALESCE(SUM(gross_amount), 0)
		FROM payout_records
		WHERE payout_status <> 'completed'
		GROUP BY payout_status
		ORDER BY payout_status ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.PendingPayoutTotal
	for rows.Next() {
		var t domain.PendingPayoutTotal
		if err := rows.Scan(&t.Status, &t.Count, &t.GrossAmount); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}
