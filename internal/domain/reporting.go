/**
 * @description
 * Read-model types for reconciliation and reporting. These are produced by
 * aggregation queries only and never feed back into writes.
 */

package domain

import "github.com/google/uuid"

// MonthlyEarnings is one month of a coach's settled installments,
// keyed YYYY-MM.
type MonthlyEarnings struct {
	Month        string `json:"month"`
	PaidSessions int64  `json:"paid_sessions"`
	Earnings     int64  `json:"earnings"`     // coach payout, in cents
	PlatformFee  int64  `json:"platform_fee"` // in cents
}

// CoachSummary aggregates a coach's settled installments.
type CoachSummary struct {
	CoachID          uuid.UUID         `json:"coach_id"`
	PaidSessions     int64             `json:"paid_sessions"`
	TotalEarnings    int64             `json:"total_earnings"`
	TotalPlatformFee int64             `json:"total_platform_fee"`
	Monthly          []MonthlyEarnings `json:"monthly"`
}

// ClosingRate is accepted offers over all decided offers. Rate is 0 when
// nothing has been decided yet.
type ClosingRate struct {
	Accepted int64   `json:"accepted"`
	Decided  int64   `json:"decided"`
	Rate     float64 `json:"rate"`
}
