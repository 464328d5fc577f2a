/**
 * @description
 * Core domain models for the offer settlement engine.
 * An Offer is a priced coaching package (N sessions) sold by a coach to a
 * coachee; its installments are the payable units, one per session.
 *
 * @notes
 * - Amounts are stored as `int64` in euro cents to avoid floating-point
 *   inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// OfferStatus is the canonical lifecycle state of an offer. The legacy
// 'active' synonym for an accepted offer collapses into OfferStatusAccepted.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusCompleted OfferStatus = "completed"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusExpired   OfferStatus = "expired"
)

// IsTerminal reports whether no further lifecycle transitions are allowed.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusCompleted || s == OfferStatusRejected || s == OfferStatusExpired
}

// IsRevenueGenerating is the single source of truth for "does this offer
// count towards earnings": accepted offers and offers whose sessions have
// all been consumed.
func (s OfferStatus) IsRevenueGenerating() bool {
	return s == OfferStatusAccepted || s == OfferStatusCompleted
}

// IsDecided reports whether the offer counts into the closing rate
// denominator (accepted, completed, rejected or expired).
func (s OfferStatus) IsDecided() bool {
	return s != OfferStatusPending
}

// InstallmentStatus is the payment state of a single installment.
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPaid    InstallmentStatus = "paid"
)

// Offer represents a coaching package sold by a coach to a coachee.
// This struct maps directly to the `offers` table.
type Offer struct {
	ID                    uuid.UUID     `json:"id"`
	CoachID               uuid.UUID     `json:"coach_id"`
	CoacheeID             uuid.UUID     `json:"coachee_id"`
	TotalSessions         int           `json:"total_sessions"`
	PricePerSession       int64         `json:"price_per_session"` // in cents
	PriceTotal            int64         `json:"price_total"`
	PriceTotalWithFee     int64         `json:"price_total_with_fee"`
	InstallmentFeePercent float64       `json:"installment_fee_percent"`
	FiscalRegime          FiscalRegime  `json:"fiscal_regime"`
	VATAmount             int64         `json:"vat_amount"`
	PlatformFeeTotal      int64         `json:"platform_fee_total"`
	CoachPayoutTotal      int64         `json:"coach_payout_total"`
	Status                OfferStatus   `json:"status"`
	ValidUntil            time.Time     `json:"valid_until"`
	ReminderSent          bool          `json:"reminder_sent"`
	PaidInstallments      int           `json:"paid_installments"`
	CompletedSessions     int           `json:"completed_sessions"`
	Installments          []Installment `json:"installments,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// Installment is one payable unit of an offer, created at acceptance time.
type Installment struct {
	OfferID       uuid.UUID         `json:"offer_id"`
	SessionNumber int               `json:"session_number"` // 1..TotalSessions
	Amount        int64             `json:"amount"`
	PlatformFee   int64             `json:"platform_fee"`
	CoachPayout   int64             `json:"coach_payout"`
	VATAmount     int64             `json:"vat_amount"`
	Status        InstallmentStatus `json:"status"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
}

// CreateOfferParams is the DTO for creating a new pending offer.
type CreateOfferParams struct {
	CoachID               uuid.UUID    `json:"coach_id"`
	CoacheeID             uuid.UUID    `json:"coachee_id"`
	TotalSessions         int          `json:"total_sessions"`
	PricePerSession       int64        `json:"price_per_session"` // in cents
	InstallmentFeePercent float64      `json:"installment_fee_percent"`
	FiscalRegime          FiscalRegime `json:"fiscal_regime"`
	ValidUntil            time.Time    `json:"valid_until"`
}

// PaymentConfirmation is the payload delivered by the payment webhook when
// an installment has been paid. Delivery is at-least-once.
type PaymentConfirmation struct {
	OfferID       uuid.UUID `json:"offer_id"`
	SessionNumber int       `json:"session_number"`
	PaidAt        time.Time `json:"paid_at"`
	Amount        int64     `json:"amount"` // in cents
}
