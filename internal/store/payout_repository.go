/**
 * @description
 * Payout record persistence. Records are created lazily when an installment
 * first becomes paid and are never deleted; once completed or failed they
 * stay as an immutable audit trail. Every transition is a compare-and-set
 * on the stored payout_status.
 */
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shadea75/coachingmatch-sub000/internal/domain"
)

const payoutColumns = `
	id, offer_id, session_number, coach_id, gross_amount,
	invoice_received, invoice_number, invoice_verified, rejection_reason,
	payout_status, scheduled_payout_date, transfer_initiated_at,
	transfer_reference, failure_reason, completed_at, created_at, updated_at`

func scanPayout(row pgx.Row) (*domain.PayoutRecord, error) {
	var p domain.PayoutRecord
	err := row.Scan(
		&p.ID,
		&p.OfferID,
		&p.SessionNumber,
		&p.CoachID,
		&p.GrossAmount,
		&p.InvoiceReceived,
		&p.InvoiceNumber,
		&p.InvoiceVerified,
		&p.RejectionReason,
		&p.Status,
		&p.ScheduledPayoutDate,
		&p.TransferInitiatedAt,
		&p.TransferReference,
		&p.FailureReason,
		&p.CompletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayoutRecord inserts the record for a newly paid installment.
// Replayed payment confirmations hit the (offer_id, session_number) unique
// key and are dropped.
func (r *Repository) CreatePayoutRecord(ctx context.Context, offerID uuid.UUID, sessionNumber int, coachID uuid.UUID, grossAmount int64, scheduledPayoutDate time.Time) error {
	query := `
		INSERT INTO payout_records (offer_id, session_number, coach_id, gross_amount, payout_status, scheduled_payout_date)
		VALUES ($1, $2, $3, $4, 'awaiting_invoice', $5)
		ON CONFLICT (offer_id, session_number) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, offerID, sessionNumber, coachID, grossAmount, scheduledPayoutDate)
	return err
}

// GetPayoutByID retrieves a payout record.
func (r *Repository) GetPayoutByID(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error) {
	query := `SELECT` + payoutColumns + ` FROM payout_records WHERE id = $1`
	p, err := scanPayout(r.db.QueryRow(ctx, query, payoutID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return p, nil
}

// ReceiveInvoice records the coach's invoice on an awaiting record.
func (r *Repository) ReceiveInvoice(ctx context.Context, payoutID uuid.UUID, invoiceNumber string) (*domain.PayoutRecord, error) {
	query := `
		UPDATE payout_records
		SET invoice_received = TRUE,
		    invoice_number = $2,
		    payout_status = 'invoice_received',
		    updated_at = NOW()
		WHERE id = $1
		  AND payout_status = 'awaiting_invoice'
		RETURNING` + payoutColumns
	p, err := scanPayout(r.db.QueryRow(ctx, query, payoutID, invoiceNumber))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.resolvePayoutStale(ctx, payoutID)
		}
		return nil, err
	}
	return p, nil
}

// ApproveInvoice marks a received invoice verified and the record ready for
// the next payout batch.
func (r *Repository) ApproveInvoice(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error) {
	query := `
		UPDATE payout_records
		SET invoice_verified = TRUE,
		    payout_status = 'ready_for_payout',
		    updated_at = NOW()
		WHERE id = $1
		  AND payout_status = 'invoice_received'
		RETURNING` + payoutColumns
	p, err := scanPayout(r.db.QueryRow(ctx, query, payoutID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.resolvePayoutStale(ctx, payoutID)
		}
		return nil, err
	}
	return p, nil
}

// RejectInvoice marks a received invoice rejected with a reason.
func (r *Repository) RejectInvoice(ctx context.Context, payoutID uuid.UUID, reason string) (*domain.PayoutRecord, error) {
	query := `
		UPDATE payout_records
		SET payout_status = 'invoice_rejected',
		    rejection_reason = $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND payout_status = 'invoice_received'
		RETURNING` + payoutColumns
	p, err := scanPayout(r.db.QueryRow(ctx, query, payoutID, reason))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.resolvePayoutStale(ctx, payoutID)
		}
		return nil, err
	}
	return p, nil
}

// ResetInvoice clears a rejected invoice so the coach can submit again.
// This is the only re-entry path back to awaiting_invoice.
func (r *Repository) ResetInvoice(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRecord, error) {
	query := `
		UPDATE payout_records
		SET invoice_received = FALSE,
		    invoice_number = NULL,
		    invoice_verified = FALSE,
		    rejection_reason = NULL,
		    payout_status = 'awaiting_invoice',
		    updated_at = NOW()
		WHERE id = $1
		  AND payout_status = 'invoice_rejected'
		RETURNING` + payoutColumns
	p, err := scanPayout(r.db.QueryRow(ctx, query, payoutID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.resolvePayoutStale(ctx, payoutID)
		}
		return nil, err
	}
	return p, nil
}

// MarkPayoutCompleted closes the record after a successful bank transfer.
// The guard accepts ready_for_payout, or invoice_received when the invoice
// was already verified (an admin completing without waiting for the batch).
func (r *Repository) MarkPayoutCompleted(ctx context.Context, payoutID uuid.UUID, transferReference *string, completedAt time.Time) (*domain.PayoutRecord, error) {
	query := `
		UPDATE payout_records
		SET payout_status = 'completed',
		    transfer_reference = COALESCE($2, transfer_reference),
		    completed_at = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND (payout_status = 'ready_for_payout'
		       OR (payout_status = 'invoice_received' AND invoice_verified))
		RETURNING` + payoutColumns
	p, err := scanPayout(r.db.QueryRow(ctx, query, payoutID, transferReference, completedAt))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.resolvePayoutStale(ctx, payoutID)
		}
		return nil, err
	}
	return p, nil
}

// MarkPayoutFailed moves any non-terminal record to failed after an
// unrecoverable transfer error.
func (r *Repository) MarkPayoutFailed(ctx context.Context, payoutID uuid.UUID, reason string) (*domain.PayoutRecord, error) {
	query := `
		UPDATE payout_records
		SET payout_status = 'failed',
		    failure_reason = $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND payout_status NOT IN ('completed', 'failed')
		RETURNING` + payoutColumns
	p, err := scanPayout(r.db.QueryRow(ctx, query, payoutID, reason))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.resolvePayoutStale(ctx, payoutID)
		}
		return nil, err
	}
	return p, nil
}

// ListDuePayouts returns unclaimed records whose scheduled payout date has
// come.
func (r *Repository) ListDuePayouts(ctx context.Context, now time.Time) ([]domain.PayoutRecord, error) {
	query := `
		SELECT` + payoutColumns + `
		FROM payout_records
		WHERE payout_status = 'ready_for_payout'
		  AND scheduled_payout_date <= $1
		  AND transfer_initiated_at IS NULL
		ORDER BY scheduled_payout_date ASC
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.PayoutRecord
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *p)
	}

	return records, rows.Err()
}

// ClaimTransfer atomically claims a record for the batch before the bank
// transfer is attempted. Returns nil without error when another batch run
// already claimed it, so a doubled invocation cannot double-transfer.
func (r *Repository) ClaimTransfer(ctx context.Context, payoutID uuid.UUID, now time.Time) (*domain.PayoutRecord, error) {
	query := `
		UPDATE payout_records
		SET transfer_initiated_at = $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND payout_status = 'ready_for_payout'
		  AND transfer_initiated_at IS NULL
		RETURNING` + payoutColumns
	p, err := scanPayout(r.db.QueryRow(ctx, query, payoutID, now))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) resolvePayoutStale(ctx context.Context, payoutID uuid.UUID) error {
	var status domain.PayoutStatus
	if err := r.db.QueryRow(ctx, `SELECT payout_status FROM payout_records WHERE id = $1`, payoutID).Scan(&status); err != nil {
		if err == pgx.ErrNoRows {
			return ErrPayoutNotFound
		}
		return err
	}
	return fmt.Errorf("payout record is %s: %w", status, ErrStaleStatus)
}
