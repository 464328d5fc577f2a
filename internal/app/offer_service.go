/**
 * @description
 * Offer lifecycle and installment ledger logic. Installments are created at
 * acceptance time from the offer's stored totals; payment confirmations are
 * applied idempotently, and a payout record is opened for the coach the
 * first time an installment is paid.
 */
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shadea75/coachingmatch-sub000/internal/domain"
)

// OfferRepository defines the database operations the offer service needs.
type OfferRepository interface {
	CreateOffer(ctx context.Context, offer *domain.Offer) (*domain.Offer, error)
	GetOfferByID(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error)
	AcceptOffer(ctx context.Context, offerID uuid.UUID, splits []domain.InstallmentSplit, now time.Time) (*domain.Offer, error)
	RejectOffer(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error)
	MarkInstallmentPaid(ctx context.Context, offerID uuid.UUID, sessionNumber int, paidAt time.Time) (*domain.Offer, *domain.Installment, bool, error)
	CompleteSession(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error)
	CreatePayoutRecord(ctx context.Context, offerID uuid.UUID, sessionNumber int, coachID uuid.UUID, grossAmount int64, scheduledPayoutDate time.Time) error
}

// EventPublisher defines the interface for publishing notification events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// EventsExchange is the topic exchange all settlement events go to.
const EventsExchange = "coaching.events"

// OfferService provides the business logic for offers and their
// installment ledger.
type OfferService struct {
	repo           OfferRepository
	publisher      EventPublisher
	vatRate        float64
	commissionRate float64
}

// NewOfferService creates a new offer service. Zero rates fall back to the
// platform defaults.
func NewOfferService(repo OfferRepository, publisher EventPublisher, vatRate, commissionRate float64) *OfferService {
	if vatRate == 0 {
		vatRate = domain.DefaultVATRate
	}
	if commissionRate == 0 {
		commissionRate = domain.DefaultCommissionRate
	}
	return &OfferService{repo: repo, publisher: publisher, vatRate: vatRate, commissionRate: commissionRate}
}

// CreateOffer validates the package pricing and persists a pending offer
// with its exact breakdown.
func (s *OfferService) CreateOffer(ctx context.Context, params domain.CreateOfferParams) (*domain.Offer, error) {
	breakdown, err := domain.ComputeBreakdown(domain.BreakdownInput{
		PricePerSession:       params.PricePerSession,
		TotalSessions:         params.TotalSessions,
		InstallmentFeePercent: params.InstallmentFeePercent,
		VATRate:               s.vatRate,
		CommissionRate:        s.commissionRate,
		Regime:                params.FiscalRegime,
	})
	if err != nil {
		return nil, err
	}
	if params.CoachID == uuid.Nil || params.CoacheeID == uuid.Nil {
		return nil, domain.NewValidationError("coach and coachee ids are required")
	}
	if !params.ValidUntil.After(time.Now()) {
		return nil, domain.NewValidationError("validity deadline must be in the future")
	}

	offer := &domain.Offer{
		CoachID:               params.CoachID,
		CoacheeID:             params.CoacheeID,
		TotalSessions:         params.TotalSessions,
		PricePerSession:       params.PricePerSession,
		PriceTotal:            breakdown.PriceTotal,
		PriceTotalWithFee:     breakdown.PriceTotalWithFee,
		InstallmentFeePercent: params.InstallmentFeePercent,
		FiscalRegime:          params.FiscalRegime,
		VATAmount:             breakdown.VATAmount,
		PlatformFeeTotal:      breakdown.PlatformFeeTotal,
		CoachPayoutTotal:      breakdown.CoachPayoutTotal,
		ValidUntil:            params.ValidUntil,
	}

	return s.repo.CreateOffer(ctx, offer)
}

// GetOffer returns the offer with its installments.
func (s *OfferService) GetOffer(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	return s.repo.GetOfferByID(ctx, offerID)
}

// AcceptOffer flips a pending offer to accepted and creates its
// installments. The splits are rebuilt from the totals stored at creation
// time, so a later change of the platform rates never skews an open offer.
func (s *OfferService) AcceptOffer(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	offer, err := s.repo.GetOfferByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	splits := domain.SplitInstallments(offer.TotalSessions, offer.PriceTotalWithFee, offer.CoachPayoutTotal, offer.VATAmount)
	return s.repo.AcceptOffer(ctx, offerID, splits, time.Now())
}

// RejectOffer flips a pending offer to rejected.
func (s *OfferService) RejectOffer(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	return s.repo.RejectOffer(ctx, offerID)
}

// MarkInstallmentPaid applies a payment confirmation to the ledger.
// Replayed deliveries of the same confirmation are no-ops; the payout
// record creation is keyed the same way, so a replay can also heal a
// missing record without ever double-counting.
func (s *OfferService) MarkInstallmentPaid(ctx context.Context, conf domain.PaymentConfirmation) (*domain.Offer, error) {
	if conf.SessionNumber < 1 {
		return nil, domain.NewValidationError("session number must be at least 1, got %d", conf.SessionNumber)
	}
	paidAt := conf.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	offer, installment, applied, err := s.repo.MarkInstallmentPaid(ctx, conf.OfferID, conf.SessionNumber, paidAt)
	if err != nil {
		return nil, err
	}

	if conf.Amount != 0 && conf.Amount != installment.Amount {
		log.Printf("WARN: payment amount mismatch on offer %s installment %d: got %d, ledger has %d",
			conf.OfferID, conf.SessionNumber, conf.Amount, installment.Amount)
	}

	if installment.Status == domain.InstallmentStatusPaid && installment.PaidAt != nil {
		scheduled := domain.NextPayoutDate(*installment.PaidAt)
		if err := s.repo.CreatePayoutRecord(ctx, offer.ID, installment.SessionNumber, offer.CoachID, installment.CoachPayout, scheduled); err != nil {
			return nil, fmt.Errorf("failed to open payout record for offer %s installment %d: %w", offer.ID, installment.SessionNumber, err)
		}
	}

	if applied {
		s.publishEvent(ctx, domain.EventInstallmentPaid, domain.SettlementEvent{
			OfferID:       offer.ID,
			SessionNumber: installment.SessionNumber,
			CoachID:       offer.CoachID,
			CoacheeID:     &offer.CoacheeID,
			Amount:        installment.Amount,
			Timestamp:     time.Now(),
		})
	}

	return offer, nil
}

// CompleteSession consumes one session of an accepted offer.
func (s *OfferService) CompleteSession(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	return s.repo.CompleteSession(ctx, offerID)
}

// publishEvent sends a notification event, best-effort. A publish failure
// is logged and never unwinds the transition that already committed.
func (s *OfferService) publishEvent(ctx context.Context, routingKey string, event domain.SettlementEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, EventsExchange, routingKey, event); err != nil {
		log.Printf("WARN: failed to publish settlement event %s: %v", routingKey, err)
	}
}
