/**
 * @description
 * Commission calculator: pure arithmetic splitting an offer's price between
 * the platform and the coach with exact VAT accounting.
 *
 * Key features:
 * - All money is computed in integer cents; rounding is half away from zero
 *   and any remainder lands on the LAST installment, never dropped.
 * - The installment surcharge raises what the coachee pays but never the
 *   platform/coach split base, which is always the base price.
 * - The coach's fiscal regime is a required explicit input. Both payout
 *   figures are exposed so callers can audit either regime.
 */

package domain

import (
	"fmt"
	"math"
)

const (
	DefaultVATRate        = 0.22
	DefaultCommissionRate = 0.30

	MaxInstallmentFeePercent = 15.0
)

// FiscalRegime selects how the coach's VAT liability is accounted for.
type FiscalRegime string

const (
	// RegimeFlatRate: the coach is not VAT-liable; the payout is the base
	// price minus the platform fee, VAT-inclusive from the coach's side.
	RegimeFlatRate FiscalRegime = "flat_rate"
	// RegimeOrdinary: the coach is VAT-liable; the VAT extracted from the
	// platform fee is withheld from the payout.
	RegimeOrdinary FiscalRegime = "ordinary"
)

// ValidationError indicates bad input to the calculator or an API payload.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// BreakdownInput is the full input to ComputeBreakdown. Zero VATRate and
// CommissionRate fall back to the platform defaults; Regime never does.
type BreakdownInput struct {
	PricePerSession       int64 // in cents
	TotalSessions         int
	InstallmentFeePercent float64 // surcharge on the coachee side, 0..15
	VATRate               float64
	CommissionRate        float64
	Regime                FiscalRegime
}

// InstallmentSplit is the exact money split of one installment.
// Amount == PlatformFee + CoachPayout + VATAmount always holds; the rounding
// residue and the surcharge share are absorbed into PlatformFee.
type InstallmentSplit struct {
	SessionNumber int
	Amount        int64
	PlatformFee   int64
	CoachPayout   int64
	VATAmount     int64
}

// Breakdown is the result of splitting an offer's price.
type Breakdown struct {
	PriceTotal        int64
	PriceTotalWithFee int64
	PerInstallment    []InstallmentSplit

	PlatformFeeTotal int64
	PlatformFeeNet   int64 // platform earnings with VAT extracted
	PlatformFeeVAT   int64

	CoachPayoutFlatRate int64
	CoachPayoutOrdinary int64

	// Regime-selected figures; these are what the offer stores.
	CoachPayoutTotal int64
	VATAmount        int64
}

// ComputeBreakdown splits the package price into platform fee, coach payout
// and VAT with deterministic cent-exact rounding.
func ComputeBreakdown(in BreakdownInput) (*Breakdown, error) {
	if in.PricePerSession < 0 {
		return nil, NewValidationError("price per session must not be negative, got %d", in.PricePerSession)
	}
	if in.TotalSessions < 1 {
		return nil, NewValidationError("total sessions must be at least 1, got %d", in.TotalSessions)
	}
	if in.InstallmentFeePercent < 0 || in.InstallmentFeePercent > MaxInstallmentFeePercent {
		return nil, NewValidationError("installment fee percent must be within [0, %v], got %v", MaxInstallmentFeePercent, in.InstallmentFeePercent)
	}
	if in.Regime != RegimeFlatRate && in.Regime != RegimeOrdinary {
		return nil, NewValidationError("fiscal regime must be %q or %q, got %q", RegimeFlatRate, RegimeOrdinary, in.Regime)
	}

	vatRate := in.VATRate
	if vatRate == 0 {
		vatRate = DefaultVATRate
	}
	commissionRate := in.CommissionRate
	if commissionRate == 0 {
		commissionRate = DefaultCommissionRate
	}

	b := &Breakdown{}
	b.PriceTotal = in.PricePerSession * int64(in.TotalSessions)
	b.PriceTotalWithFee = roundCents(float64(b.PriceTotal) * (1 + in.InstallmentFeePercent/100))

	// The split base is the base price; the surcharge never enters it.
	b.PlatformFeeTotal = roundCents(float64(b.PriceTotal) * commissionRate)
	b.PlatformFeeNet = roundCents(float64(b.PlatformFeeTotal) / (1 + vatRate))
	b.PlatformFeeVAT = b.PlatformFeeTotal - b.PlatformFeeNet

	b.CoachPayoutFlatRate = b.PriceTotal - b.PlatformFeeTotal
	b.CoachPayoutOrdinary = b.PriceTotal - b.PlatformFeeTotal - b.PlatformFeeVAT

	switch in.Regime {
	case RegimeOrdinary:
		b.CoachPayoutTotal = b.CoachPayoutOrdinary
		b.VATAmount = b.PlatformFeeVAT
	default:
		b.CoachPayoutTotal = b.CoachPayoutFlatRate
		b.VATAmount = 0
	}

	b.PerInstallment = SplitInstallments(in.TotalSessions, b.PriceTotalWithFee, b.CoachPayoutTotal, b.VATAmount)

	return b, nil
}

// SplitInstallments divides the charged total and its components across the
// installments so the sums stay cent-exact. Leading installments are the even
// amount split rounded down; the last absorbs the remainder. CoachPayout and
// VATAmount take each installment's proportional share of the still
// unallocated totals, clamped so no component of any installment goes
// negative, even on sub-euro session prices where the rounded shares are
// fractions of a cent. It operates on stored offer totals so installments
// built at acceptance time always reconcile with what the offer was created
// with.
func SplitInstallments(n int, totalWithFee, coachTotal, vatTotal int64) []InstallmentSplit {
	perAmount := totalWithFee / int64(n)

	splits := make([]InstallmentSplit, n)
	remAmount := totalWithFee
	remCoach := coachTotal
	remVAT := vatTotal
	for i := 0; i < n; i++ {
		s := InstallmentSplit{SessionNumber: i + 1}
		if i < n-1 {
			s.Amount = perAmount
		} else {
			s.Amount = remAmount
		}

		// Unallocated cents left for the rows after this one.
		slack := remAmount - s.Amount

		s.VATAmount = clampShare(shareOf(remVAT, s.Amount, remAmount), remVAT-slack, min(remVAT, s.Amount))
		remFee := remAmount - remCoach - remVAT
		s.CoachPayout = clampShare(shareOf(remCoach, s.Amount, remAmount), s.Amount-s.VATAmount-remFee, min(remCoach, s.Amount-s.VATAmount))
		s.PlatformFee = s.Amount - s.CoachPayout - s.VATAmount

		remAmount -= s.Amount
		remCoach -= s.CoachPayout
		remVAT -= s.VATAmount
		splits[i] = s
	}

	return splits
}

// shareOf is the nearest-cent share of remaining owed against an installment
// of amount out of total still to be charged.
func shareOf(remaining, amount, total int64) int64 {
	if total == 0 {
		return 0
	}
	return roundCents(float64(remaining) * float64(amount) / float64(total))
}

func clampShare(v, lo, hi int64) int64 {
	if lo < 0 {
		lo = 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
