/**
 * @description
 * Payout tracker: drives a coach reimbursement from "awaiting invoice"
 * through verification to the completed bank transfer. All transitions are
 * compare-and-set in the store; this layer sequences them, talks to the
 * transfer provider and emits notification events after commit.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shadea75/coachingmatch-sub000/internal/domain"
)

// PayoutRepository defines the database operations the payout service needs.
type PayoutRepository interface {
	GetPayoutByID(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error)
	ReceiveInvoice(ctx context.Context, payoutID uuid.UUID, invoiceNumber string) (*domain.PayoutRecord, error)
	ApproveInvoice(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error)
	RejectInvoice(ctx context.Context, payoutID uuid.UUID, reason string) (*domain.PayoutRecord, error)
	ResetInvoice(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error)
	MarkPayoutCompleted(ctx context.Context, payoutID uuid.UUID, transferReference *string, completedAt time.Time) (*domain.PayoutRecord, error)
	MarkPayoutFailed(ctx context.Context, payoutID uuid.UUID, reason string) (*domain.PayoutRecord, error)
	ListDuePayouts(ctx context.Context, now time.Time) ([]domain.PayoutRecord, error)
	ClaimTransfer(ctx context.Context, payoutID uuid.UUID, now time.Time) (*domain.PayoutRecord, error)
}

// TransferClient defines the interface for the bank transfer provider.
type TransferClient interface {
	Transfer(ctx context.Context, coachID uuid.UUID, amount int64, reference string) (string, error)
}

// PayoutService provides the business logic for payout tracking.
type PayoutService struct {
	repo      PayoutRepository
	transfers TransferClient
	publisher EventPublisher
}

// NewPayoutService creates a new payout service.
func NewPayoutService(repo PayoutRepository, transfers TransferClient, publisher EventPublisher) *PayoutService {
	return &PayoutService{repo: repo, transfers: transfers, publisher: publisher}
}

// GetPayout returns a payout record.
func (s *PayoutService) GetPayout(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error) {
	return s.repo.GetPayoutByID(ctx, payoutID)
}

// ReceiveInvoice records the coach's invoice on an awaiting payout.
func (s *PayoutService) ReceiveInvoice(ctx context.Context, payoutID uuid.UUID, invoiceNumber string) (*domain.PayoutRecord, error) {
	if invoiceNumber == "" {
		return nil, domain.NewValidationError("invoice number is required")
	}

	record, err := s.repo.ReceiveInvoice(ctx, payoutID, invoiceNumber)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, domain.EventInvoiceReceived, record, nil)
	return record, nil
}

// VerifyInvoice approves or rejects a received invoice. Rejections require
// a reason so the coach knows what to fix.
func (s *PayoutService) VerifyInvoice(ctx context.Context, payoutID uuid.UUID, approve bool, reason string) (*domain.PayoutRecord, error) {
	if approve {
		record, err := s.repo.ApproveInvoice(ctx, payoutID)
		if err != nil {
			return nil, err
		}
		s.publishEvent(ctx, domain.EventInvoiceVerified, record, nil)
		return record, nil
	}

	if reason == "" {
		return nil, domain.NewValidationError("a rejection reason is required")
	}
	record, err := s.repo.RejectInvoice(ctx, payoutID, reason)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, domain.EventInvoiceRejected, record, &reason)
	return record, nil
}

// ResetInvoice clears a rejected invoice so the coach can resubmit. This is
// the only way back to awaiting_invoice.
func (s *PayoutService) ResetInvoice(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error) {
	return s.repo.ResetInvoice(ctx, payoutID)
}

// CompletePayout marks a payout completed outside the batch, for transfers
// an admin settled manually. The store guard still requires a verified
// invoice or a ready record.
func (s *PayoutService) CompletePayout(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error) {
	record, err := s.repo.MarkPayoutCompleted(ctx, payoutID, nil, time.Now())
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, domain.EventPayoutCompleted, record, nil)
	return record, nil
}

// RunBatchPayout transfers every due, ready payout. Each record is claimed
// atomically before its transfer so a doubled invocation cannot pay twice,
// and a failure on one record never aborts the rest of the batch.
func (s *PayoutService) RunBatchPayout(ctx context.Context) (*domain.BatchPayoutResult, error) {
	now := time.Now()
	due, err := s.repo.ListDuePayouts(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &domain.BatchPayoutResult{}
	for _, record := range due {
		claimed, err := s.repo.ClaimTransfer(ctx, record.ID, now)
		if err != nil {
			log.Printf("WARN: failed to claim payout %s: %v", record.ID, err)
			result.Processed++
			result.Failed++
			continue
		}
		if claimed == nil {
			// Another batch run got here first.
			continue
		}
		result.Processed++

		reference := claimed.ID.String()
		providerRef, err := s.transfers.Transfer(ctx, claimed.CoachID, claimed.GrossAmount, reference)
		if err != nil {
			result.Failed++
			failed, markErr := s.repo.MarkPayoutFailed(ctx, claimed.ID, err.Error())
			if markErr != nil {
				log.Printf("WARN: failed to mark payout %s failed: %v", claimed.ID, markErr)
				continue
			}
			reason := err.Error()
			s.publishEvent(ctx, domain.EventPayoutFailed, failed, &reason)
			continue
		}

		completed, err := s.repo.MarkPayoutCompleted(ctx, claimed.ID, &providerRef, time.Now())
		if err != nil {
			log.Printf("WARN: transfer %s succeeded but completing payout %s failed: %v", providerRef, claimed.ID, err)
			result.Failed++
			continue
		}
		result.Successful++
		s.publishEvent(ctx, domain.EventPayoutCompleted, completed, nil)
	}

	return result, nil
}

func (s *PayoutService) publishEvent(ctx context.Context, routingKey string, record *domain.PayoutRecord, reason *string) {
	if s.publisher == nil {
		return
	}

	event := domain.SettlementEvent{
		OfferID:       record.OfferID,
		SessionNumber: record.SessionNumber,
		CoachID:       record.CoachID,
		Amount:        record.GrossAmount,
		Reason:        reason,
		Timestamp:     time.Now(),
	}
	if err := s.publisher.Publish(ctx, EventsExchange, routingKey, event); err != nil {
		log.Printf("WARN: failed to publish payout event %s: %v", routingKey, err)
	}
}
