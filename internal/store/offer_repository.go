/**
 * @description
 * Offer and installment persistence. Installments live in a child table
 * owned exclusively by their offer; the only mutation path for them is the
 * mark-paid compare-and-set driven by payment confirmations.
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

const offerColumns = `
	id, coach_id, coachee_id, total_sessions, price_per_session,
	price_total, price_total_with_fee, installment_fee_percent, fiscal_regime,
	vat_amount, platform_fee_total, coach_payout_total, status, valid_until,
	reminder_sent, paid_installments, completed_sessions, created_at, updated_at`

func scanOffer(row pgx.Row) (*domain.Offer, error) {
	var o domain.Offer
	err := row.Scan(
		&o.ID,
		&o.CoachID,
		&o.CoacheeID,
		&o.TotalSessions,
		&o.PricePerSession,
		&o.PriceTotal,
		&o.PriceTotalWithFee,
		&o.InstallmentFeePercent,
		&o.FiscalRegime,
		&o.VATAmount,
		&o.PlatformFeeTotal,
		&o.CoachPayoutTotal,
		&o.Status,
		&o.ValidUntil,
		&o.ReminderSent,
		&o.PaidInstallments,
		&o.CompletedSessions,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOffer inserts a new pending offer with its computed totals.
func (r *Repository) CreateOffer(ctx context.Context, o *domain.Offer) (*domain.Offer, error) {
	query := `
		INSERT INTO offers (
			coach_id, coachee_id, total_sessions, price_per_session,
			price_total, price_total_with_fee, installment_fee_percent, fiscal_regime,
			vat_amount, platform_fee_total, coach_payout_total, status, valid_until
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending', $12)
		RETURNING` + offerColumns

	return scanOffer(r.db.QueryRow(ctx, query,
		o.CoachID,
		o.CoacheeID,
		o.TotalSessions,
		o.PricePerSession,
		o.PriceTotal,
		o.PriceTotalWithFee,
		o.InstallmentFeePercent,
		o.FiscalRegime,
		o.VATAmount,
		o.PlatformFeeTotal,
		o.CoachPayoutTotal,
		o.ValidUntil,
	))
}

// GetOfferByID retrieves an offer together with its installments.
func (r *Repository) GetOfferByID(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	query := `SELECT` + offerColumns + ` FROM offers WHERE id = $1`
	offer, err := scanOffer(r.db.QueryRow(ctx, query, offerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}

	installments, err := r.listInstallments(ctx, offerID)
	if err != nil {
		return nil, err
	}
	offer.Installments = installments

	return offer, nil
}

func (r *Repository) listInstallments(ctx context.Context, offerID uuid.UUID) ([]domain.Installment, error) {
	query := `
		SELECT offer_id, session_number, amount, platform_fee, coach_payout, vat_amount, status, paid_at
		FROM offer_installments
		WHERE offer_id = $1
		ORDER BY session_number ASC
	`
	rows, err := r.db.Query(ctx, query, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var installments []domain.Installment
	for rows.Next() {
		var inst domain.Installment
		if err := rows.Scan(
			&inst.OfferID,
			&inst.SessionNumber,
			&inst.Amount,
			&inst.PlatformFee,
			&inst.CoachPayout,
			&inst.VATAmount,
			&inst.Status,
			&inst.PaidAt,
		); err != nil {
			return nil, err
		}
		installments = append(installments, inst)
	}

	return installments, rows.Err()
}

// AcceptOffer flips a pending, still-valid offer to accepted and creates its
// installments in the same transaction. Returns ErrStaleStatus when the
// offer is no longer pending or its validity window has passed.
func (r *Repository) AcceptOffer(ctx context.Context, offerID uuid.UUID, splits []domain.InstallmentSplit, now time.Time) (*domain.Offer, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE offers
		SET status = 'accepted',
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'pending'
		  AND valid_until >= $2
		RETURNING` + offerColumns
	offer, err := scanOffer(tx.QueryRow(ctx, query, offerID, now))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.resolveOfferStale(ctx, offerID)
		}
		return nil, err
	}

	for _, s := range splits {
		_, err := tx.Exec(ctx, `
			INSERT INTO offer_installments (offer_id, session_number, amount, platform_fee, coach_payout, vat_amount, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		`, offerID, s.SessionNumber, s.Amount, s.PlatformFee, s.CoachPayout, s.VATAmount)
		if err != nil {
			return nil, fmt.Errorf("failed to create installment %d: %w", s.SessionNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	installments, err := r.listInstallments(ctx, offerID)
	if err != nil {
		return nil, err
	}
	offer.Installments = installments

	return offer, nil
}

// RejectOffer flips a pending offer to rejected.
func (r *Repository) RejectOffer(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	query := `
		UPDATE offers
		SET status = 'rejected',
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING` + offerColumns
	offer, err := scanOffer(r.db.QueryRow(ctx, query, offerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.resolveOfferStale(ctx, offerID)
		}
		return nil, err
	}
	return offer, nil
}

// MarkInstallmentPaid applies a payment confirmation. The installment flip
// is a compare-and-set on status='pending', which makes replayed webhook
// deliveries a no-op: applied reports whether this call was the first one.
func (r *Repository) MarkInstallmentPaid(ctx context.Context, offerID uuid.UUID, sessionNumber int, paidAt time.Time) (*domain.Offer, *domain.Installment, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	defer tx.Rollback(ctx)

	var status domain.OfferStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM offers WHERE id = $1`, offerID).Scan(&status); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, false, ErrOfferNotFound
		}
		return nil, nil, false, err
	}
	if status == domain.OfferStatusRejected || status == domain.OfferStatusExpired {
		return nil, nil, false, fmt.Errorf("offer %s is %s and does not accept payments: %w", offerID, status, ErrStaleStatus)
	}

	var inst domain.Installment
	applied := true
	err = tx.QueryRow(ctx, `
		UPDATE offer_installments
		SET status = 'paid',
		    paid_at = $3
		WHERE offer_id = $1
		  AND session_number = $2
		  AND status = 'pending'
		RETURNING offer_id, session_number, amount, platform_fee, coach_payout, vat_amount, status, paid_at
	`, offerID, sessionNumber, paidAt).Scan(
		&inst.OfferID,
		&inst.SessionNumber,
		&inst.Amount,
		&inst.PlatformFee,
		&inst.CoachPayout,
		&inst.VATAmount,
		&inst.Status,
		&inst.PaidAt,
	)
	if err == pgx.ErrNoRows {
		// Either the installment does not exist or it is already paid.
		applied = false
		err = tx.QueryRow(ctx, `
			SELECT offer_id, session_number, amount, platform_fee, coach_payout, vat_amount, status, paid_at
			FROM offer_installments
			WHERE offer_id = $1 AND session_number = $2
		`, offerID, sessionNumber).Scan(
			&inst.OfferID,
			&inst.SessionNumber,
			&inst.Amount,
			&inst.PlatformFee,
			&inst.CoachPayout,
			&inst.VATAmount,
			&inst.Status,
			&inst.PaidAt,
		)
		if err == pgx.ErrNoRows {
			return nil, nil, false, ErrInstallmentNotFound
		}
	}
	if err != nil {
		return nil, nil, false, err
	}

	if applied {
		if _, err := tx.Exec(ctx, `
			UPDATE offers
			SET paid_installments = paid_installments + 1,
			    updated_at = NOW()
			WHERE id = $1
		`, offerID); err != nil {
			return nil, nil, false, err
		}
	}

	offer, err := scanOffer(tx.QueryRow(ctx, `SELECT`+offerColumns+` FROM offers WHERE id = $1`, offerID))
	if err != nil {
		return nil, nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, false, err
	}

	return offer, &inst, applied, nil
}

// CompleteSession consumes one session of an accepted offer and flips the
// offer to completed when the last one is consumed.
func (r *Repository) CompleteSession(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	query := `
		UPDATE offers
		SET completed_sessions = completed_sessions + 1,
		    status = CASE WHEN completed_sessions + 1 >= total_sessions THEN 'completed' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'accepted'
		  AND completed_sessions < total_sessions
		RETURNING` + offerColumns
	offer, err := scanOffer(r.db.QueryRow(ctx, query, offerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.resolveOfferStale(ctx, offerID)
		}
		return nil, err
	}
	return offer, nil
}

// ExpireOverdueOffers flips every pending offer past its validity deadline
// to expired and returns them.
func (r *Repository) ExpireOverdueOffers(ctx context.Context, now time.Time) ([]domain.Offer, error) {
	query := `
		UPDATE offers
		SET status = 'expired',
		    updated_at = NOW()
		WHERE status = 'pending'
		  AND valid_until < $1
		RETURNING` + offerColumns
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *offer)
	}

	return offers, rows.Err()
}

// ClaimExpiryReminders claims pending offers expiring within the window by
// flipping reminder_sent under a compare-and-set, so a retried sweep can
// never double-send.
func (r *Repository) ClaimExpiryReminders(ctx context.Context, now, until time.Time) ([]domain.Offer, error) {
	query := `
		UPDATE offers
		SET reminder_sent = TRUE,
		    updated_at = NOW()
		WHERE status = 'pending'
		  AND reminder_sent = FALSE
		  AND valid_until > $1
		  AND valid_until <= $2
		RETURNING` + offerColumns
	rows, err := r.db.Query(ctx, query, now, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *offer)
	}

	return offers, rows.Err()
}

func (r *Repository) resolveOfferStale(ctx context.Context, offerID uuid.UUID) error {
	var status domain.OfferStatus
	if err := r.db.QueryRow(ctx, `SELECT status FROM offers WHERE id = $1`, offerID).Scan(&status); err != nil {
		if err == pgx.ErrNoRows {
			return ErrOfferNotFound
		}
		return err
	}
	return fmt.Errorf("offer is %s: %w", status, ErrStaleStatus)
}
