/**
 * @description
 * Payout scheduling: coach payouts run in a weekly Monday batch, so a paid
 * installment is scheduled for the next Monday strictly after its payment.
 */

package domain

import "time"

// NextPayoutDate returns the first Monday strictly after paidAt, at midnight
// in paidAt's location. A payment made on a Monday schedules for the Monday
// one week later.
func NextPayoutDate(paidAt time.Time) time.Time {
	days := (8 - int(paidAt.Weekday())) % 7
	if days == 0 {
		days = 7
	}

	next := paidAt.AddDate(0, 0, days)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, paidAt.Location())
}
