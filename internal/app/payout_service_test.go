package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shadea75/coachingmatch-sub000/internal/domain"
	"github.com/shadea75/coachingmatch-sub000/internal/store"
)

type payoutRepoStub struct {
	records map[uuid.UUID]*domain.PayoutRecord
	due     []domain.PayoutRecord
	claimed map[uuid.UUID]bool

	receiveErr error
	approveErr error

	completedIDs []uuid.UUID
	failedIDs    []uuid.UUID
	failReasons  map[uuid.UUID]string
}

func (s *payoutRepoStub) record(payoutID uuid.UUID) (*domain.PayoutRecord, error) {
	rec, ok := s.records[payoutID]
	if !ok {
		return nil, store.ErrPayoutNotFound
	}
	return rec, nil
}

func (s *payoutRepoStub) GetPayoutByID(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error) {
	return s.record(payoutID)
}

func (s *payoutRepoStub) ReceiveInvoice(ctx context.Context, payoutID uuid.UUID, invoiceNumber string) (*domain.PayoutRecord, error) {
	if s.receiveErr != nil {
		return nil, s.receiveErr
	}
	rec, err := s.record(payoutID)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.PayoutStatusInvoiceReceived
	rec.InvoiceReceived = true
	rec.InvoiceNumber = &invoiceNumber
	return rec, nil
}

func (s *payoutRepoStub) ApproveInvoice(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error) {
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	rec, err := s.record(payoutID)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.PayoutStatusReadyForPayout
	rec.InvoiceVerified = true
	return rec, nil
}

func (s *payoutRepoStub) RejectInvoice(ctx context.Context, payoutID uuid.UUID, reason string) (*domain.PayoutRecord, error) {
	rec, err := s.record(payoutID)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.PayoutStatusInvoiceRejected
	rec.RejectionReason = &reason
	return rec, nil
}

func (s *payoutRepoStub) ResetInvoice(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error) {
	rec, err := s.record(payoutID)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.PayoutStatusAwaitingInvoice
	rec.InvoiceReceived = false
	rec.InvoiceNumber = nil
	rec.RejectionReason = nil
	return rec, nil
}

func (s *payoutRepoStub) MarkPayoutCompleted(ctx context.Context, payoutID uuid.UUID, transferReference *string, completedAt time.Time) (*domain.PayoutRecord, error) {
	rec, err := s.record(payoutID)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.PayoutStatusReadyForPayout && !rec.InvoiceVerified {
		return nil, fmt.Errorf("payout %s is %s: %w", payoutID, rec.Status, store.ErrStaleStatus)
	}
	rec.Status = domain.PayoutStatusCompleted
	rec.TransferReference = transferReference
	rec.CompletedAt = &completedAt
	s.completedIDs = append(s.completedIDs, payoutID)
	return rec, nil
}

func (s *payoutRepoStub) MarkPayoutFailed(ctx context.Context, payoutID uuid.UUID, reason string) (*domain.PayoutRecord, error) {
	rec, err := s.record(payoutID)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.PayoutStatusFailed
	rec.FailureReason = &reason
	s.failedIDs = append(s.failedIDs, payoutID)
	if s.failReasons == nil {
		s.failReasons = make(map[uuid.UUID]string)
	}
	s.failReasons[payoutID] = reason
	return rec, nil
}

func (s *payoutRepoStub) ListDuePayouts(ctx context.Context, now time.Time) ([]domain.PayoutRecord, error) {
	return s.due, nil
}

func (s *payoutRepoStub) ClaimTransfer(ctx context.Context, payoutID uuid.UUID, now time.Time) (*domain.PayoutRecord, error) {
	if s.claimed == nil {
		s.claimed = make(map[uuid.UUID]bool)
	}
	if s.claimed[payoutID] {
		return nil, nil
	}
	s.claimed[payoutID] = true
	rec, err := s.record(payoutID)
	if err != nil {
		return nil, err
	}
	rec.TransferInitiatedAt = &now
	return rec, nil
}

type transferStub struct {
	failFor map[uuid.UUID]error
	calls   []uuid.UUID
}

func (t *transferStub) Transfer(ctx context.Context, coachID uuid.UUID, amount int64, reference string) (string, error) {
	t.calls = append(t.calls, coachID)
	if err, ok := t.failFor[coachID]; ok {
		return "", err
	}
	return "tr_" + reference[:8], nil
}

func newReadyPayout() *domain.PayoutRecord {
	return &domain.PayoutRecord{
		ID:                  uuid.New(),
		OfferID:             uuid.New(),
		SessionNumber:       1,
		CoachID:             uuid.New(),
		GrossAmount:         7000,
		InvoiceReceived:     true,
		InvoiceVerified:     true,
		Status:              domain.PayoutStatusReadyForPayout,
		ScheduledPayoutDate: time.Now().Add(-24 * time.Hour),
	}
}

func newPayoutRepoWith(records ...*domain.PayoutRecord) *payoutRepoStub {
	repo := &payoutRepoStub{records: make(map[uuid.UUID]*domain.PayoutRecord)}
	for _, rec := range records {
		repo.records[rec.ID] = rec
		repo.due = append(repo.due, *rec)
	}
	return repo
}

func TestReceiveInvoice_RequiresInvoiceNumber(t *testing.T) {
	svc := NewPayoutService(newPayoutRepoWith(), &transferStub{}, &publisherStub{})

	_, err := svc.ReceiveInvoice(context.Background(), uuid.New(), "")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty invoice number, got %v", err)
	}
}

func TestVerifyInvoice_RejectionRequiresReason(t *testing.T) {
	rec := newReadyPayout()
	rec.Status = domain.PayoutStatusInvoiceReceived
	svc := NewPayoutService(newPayoutRepoWith(rec), &transferStub{}, &publisherStub{})

	_, err := svc.VerifyInvoice(context.Background(), rec.ID, false, "")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for missing rejection reason, got %v", err)
	}
}

func TestVerifyInvoice_ApprovePublishesVerifiedEvent(t *testing.T) {
	rec := newReadyPayout()
	rec.Status = domain.PayoutStatusInvoiceReceived
	rec.InvoiceVerified = false
	pub := &publisherStub{}
	svc := NewPayoutService(newPayoutRepoWith(rec), &transferStub{}, pub)

	got, err := svc.VerifyInvoice(context.Background(), rec.ID, true, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.PayoutStatusReadyForPayout {
		t.Fatalf("expected ready_for_payout, got %s", got.Status)
	}
	if len(pub.events) != 1 || pub.events[0] != domain.EventInvoiceVerified {
		t.Fatalf("expected invoice_verified event, got %v", pub.events)
	}
}

func TestResetInvoice_ClearsRejectedInvoiceForResubmission(t *testing.T) {
	rec := newReadyPayout()
	rec.Status = domain.PayoutStatusAwaitingInvoice
	rec.InvoiceReceived = false
	rec.InvoiceVerified = false
	svc := NewPayoutService(newPayoutRepoWith(rec), &transferStub{}, &publisherStub{})

	got, err := svc.ReceiveInvoice(context.Background(), rec.ID, "FT-1")
	if err != nil {
		t.Fatalf("ReceiveInvoice returned error: %v", err)
	}
	if got.Status != domain.PayoutStatusInvoiceReceived || !got.InvoiceReceived {
		t.Fatalf("expected invoice_received, got %s", got.Status)
	}

	got, err = svc.VerifyInvoice(context.Background(), rec.ID, false, "wrong VAT")
	if err != nil {
		t.Fatalf("VerifyInvoice returned error: %v", err)
	}
	if got.Status != domain.PayoutStatusInvoiceRejected {
		t.Fatalf("expected invoice_rejected, got %s", got.Status)
	}
	if got.RejectionReason == nil || *got.RejectionReason != "wrong VAT" {
		t.Fatalf("expected rejection reason to be recorded, got %v", got.RejectionReason)
	}

	got, err = svc.ResetInvoice(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("ResetInvoice returned error: %v", err)
	}
	if got.Status != domain.PayoutStatusAwaitingInvoice {
		t.Fatalf("expected awaiting_invoice after reset, got %s", got.Status)
	}
	if got.InvoiceReceived {
		t.Error("expected invoice_received flag cleared after reset")
	}
	if got.InvoiceNumber != nil {
		t.Errorf("expected invoice number cleared after reset, got %q", *got.InvoiceNumber)
	}
	if got.RejectionReason != nil {
		t.Errorf("expected rejection reason cleared after reset, got %q", *got.RejectionReason)
	}
}

func TestVerifyInvoice_ConcurrentApproveLosesToStaleStatus(t *testing.T) {
	rec := newReadyPayout()
	rec.Status = domain.PayoutStatusInvoiceReceived
	repo := newPayoutRepoWith(rec)
	repo.approveErr = fmt.Errorf("payout %s is ready_for_payout: %w", rec.ID, store.ErrStaleStatus)
	svc := NewPayoutService(repo, &transferStub{}, &publisherStub{})

	_, err := svc.VerifyInvoice(context.Background(), rec.ID, true, "")
	if !errors.Is(err, store.ErrStaleStatus) {
		t.Fatalf("expected stale status error, got %v", err)
	}
}

func TestCompletePayout_GuardRejectsUnverifiedRecord(t *testing.T) {
	rec := newReadyPayout()
	rec.Status = domain.PayoutStatusAwaitingInvoice
	rec.InvoiceVerified = false
	svc := NewPayoutService(newPayoutRepoWith(rec), &transferStub{}, &publisherStub{})

	_, err := svc.CompletePayout(context.Background(), rec.ID)
	if !errors.Is(err, store.ErrStaleStatus) {
		t.Fatalf("expected stale status for unverified record, got %v", err)
	}
}

func TestRunBatchPayout_OneFailureDoesNotAbortBatch(t *testing.T) {
	good := newReadyPayout()
	bad := newReadyPayout()
	repo := newPayoutRepoWith(good, bad)
	transfers := &transferStub{failFor: map[uuid.UUID]error{bad.CoachID: errors.New("insufficient provider balance")}}
	pub := &publisherStub{}
	svc := NewPayoutService(repo, transfers, pub)

	result, err := svc.RunBatchPayout(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 || result.Successful != 1 || result.Failed != 1 {
		t.Fatalf("expected processed=2 successful=1 failed=1, got %+v", result)
	}
	if len(repo.completedIDs) != 1 || repo.completedIDs[0] != good.ID {
		t.Fatalf("expected only the good payout completed, got %v", repo.completedIDs)
	}
	if len(repo.failedIDs) != 1 || repo.failedIDs[0] != bad.ID {
		t.Fatalf("expected the bad payout marked failed, got %v", repo.failedIDs)
	}
	if repo.failReasons[bad.ID] != "insufficient provider balance" {
		t.Fatalf("expected the provider error as failure reason, got %q", repo.failReasons[bad.ID])
	}
}

func TestRunBatchPayout_AlreadyClaimedRecordIsSkipped(t *testing.T) {
	rec := newReadyPayout()
	repo := newPayoutRepoWith(rec)
	repo.claimed = map[uuid.UUID]bool{rec.ID: true}
	transfers := &transferStub{}
	svc := NewPayoutService(repo, transfers, &publisherStub{})

	result, err := svc.RunBatchPayout(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("expected claimed record to be skipped, got processed=%d", result.Processed)
	}
	if len(transfers.calls) != 0 {
		t.Fatalf("expected no transfer for an already claimed record, got %d calls", len(transfers.calls))
	}
}

func TestRunBatchPayout_DoubledInvocationNeverPaysTwice(t *testing.T) {
	rec := newReadyPayout()
	repo := newPayoutRepoWith(rec)
	transfers := &transferStub{}
	svc := NewPayoutService(repo, transfers, &publisherStub{})

	if _, err := svc.RunBatchPayout(context.Background()); err != nil {
		t.Fatalf("unexpected error on first run: %v", err)
	}
	// The record stays in the due snapshot; the claim marker must stop it.
	if _, err := svc.RunBatchPayout(context.Background()); err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	if len(transfers.calls) != 1 {
		t.Fatalf("expected exactly one transfer across doubled runs, got %d", len(transfers.calls))
	}
}

func TestRunBatchPayout_PublisherFailureDoesNotFailBatch(t *testing.T) {
	rec := newReadyPayout()
	repo := newPayoutRepoWith(rec)
	pub := &publisherStub{err: errors.New("broker down")}
	svc := NewPayoutService(repo, &transferStub{}, pub)

	result, err := svc.RunBatchPayout(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Successful != 1 {
		t.Fatalf("expected transfer to complete despite publish failure, got %+v", result)
	}
}
