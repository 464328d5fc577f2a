/**
 * @description
 * Data access layer for the settlement engine. Every mutation that guards a
 * state machine transition is expressed as a compare-and-set: the UPDATE
 * re-checks the expected status at write time and returns no row when the
 * stored state moved on, so concurrent writers can never both win.
 */
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOfferNotFound       = errors.New("offer not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrPayoutNotFound      = errors.New("payout record not found")

	// ErrStaleStatus means a transition guard failed: the stored status no
	// longer matches the expected precondition. Callers should re-read and
	// retry, never blind-overwrite.
	ErrStaleStatus = errors.New("stored status no longer matches the expected precondition")
)

// Repository handles database operations for offers, installments and
// payout records.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}
