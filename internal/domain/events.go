/**
 * @description
 * Typed notification events published to RabbitMQ after a settlement
 * transition commits. The notification side (email templates, in-app
 * badges) consumes these; their delivery is best-effort and never rolls
 * back the transition that produced them.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys on the coaching.events topic exchange.
const (
	EventOfferReminder   = "offer.reminder"
	EventOfferExpired    = "offer.expired"
	EventInstallmentPaid = "installment.paid"
	EventInvoiceReceived = "payout.invoice_received"
	EventInvoiceVerified = "payout.invoice_verified"
	EventInvoiceRejected = "payout.invoice_rejected"
	EventPayoutCompleted = "payout.completed"
	EventPayoutFailed    = "payout.failed"
)

// SettlementEvent is the payload carried by every settlement notification.
type SettlementEvent struct {
	OfferID       uuid.UUID  `json:"offer_id"`
	SessionNumber int        `json:"session_number,omitempty"`
	CoachID       uuid.UUID  `json:"coach_id"`
	CoacheeID     *uuid.UUID `json:"coachee_id,omitempty"`
	Amount        int64      `json:"amount,omitempty"` // in cents
	Reason        *string    `json:"reason,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}
