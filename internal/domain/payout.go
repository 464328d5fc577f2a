/**
 * @description
 * Domain model for coach payout tracking. One PayoutRecord exists per paid
 * installment and follows the coach's invoice through verification to the
 * final bank transfer. Records are kept forever as an audit trail.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatus is the state of a payout record's lifecycle.
type PayoutStatus string

const (
	PayoutStatusAwaitingInvoice PayoutStatus = "awaiting_invoice"
	PayoutStatusInvoiceReceived PayoutStatus = "invoice_received"
	PayoutStatusInvoiceRejected PayoutStatus = "invoice_rejected"
	PayoutStatusReadyForPayout  PayoutStatus = "ready_for_payout"
	PayoutStatusCompleted       PayoutStatus = "completed"
	PayoutStatusFailed          PayoutStatus = "failed"
)

// IsTerminal reports whether the record accepts no further transitions.
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusCompleted || s == PayoutStatusFailed
}

// PayoutRecord tracks the reimbursement of a coach for one paid installment.
// Keyed logically by (offer_id, session_number); created lazily when the
// installment first becomes paid.
type PayoutRecord struct {
	ID                  uuid.UUID    `json:"id"`
	OfferID             uuid.UUID    `json:"offer_id"`
	SessionNumber       int          `json:"session_number"`
	CoachID             uuid.UUID    `json:"coach_id"`
	GrossAmount         int64        `json:"gross_amount"` // == installment coach payout, in cents
	InvoiceReceived     bool         `json:"invoice_received"`
	InvoiceNumber       *string      `json:"invoice_number,omitempty"`
	InvoiceVerified     bool         `json:"invoice_verified"`
	RejectionReason     *string      `json:"rejection_reason,omitempty"`
	Status              PayoutStatus `json:"payout_status"`
	ScheduledPayoutDate time.Time    `json:"scheduled_payout_date"`
	TransferInitiatedAt *time.Time   `json:"transfer_initiated_at,omitempty"`
	TransferReference   *string      `json:"transfer_reference,omitempty"`
	FailureReason       *string      `json:"failure_reason,omitempty"`
	CompletedAt         *time.Time   `json:"completed_at,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// BatchPayoutResult summarizes one run of the weekly payout batch.
type BatchPayoutResult struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// PendingPayoutTotal is a per-status aggregate over open payout records.
type PendingPayoutTotal struct {
	Status      PayoutStatus `json:"payout_status"`
	Count       int64        `json:"count"`
	GrossAmount int64        `json:"gross_amount"`
}
