package domain

import (
	"errors"
	"testing"
)

func TestComputeBreakdown_FlatRateScenario(t *testing.T) {
	// 100.00 per session, 3 sessions, no installment surcharge.
	b, err := ComputeBreakdown(BreakdownInput{
		PricePerSession: 10000,
		TotalSessions:   3,
		Regime:          RegimeFlatRate,
	})
	if err != nil {
		t.Fatalf("ComputeBreakdown returned error: %v", err)
	}

	if b.PriceTotal != 30000 {
		t.Errorf("expected price total 30000, got %d", b.PriceTotal)
	}
	if b.PriceTotalWithFee != 30000 {
		t.Errorf("expected price total with fee 30000, got %d", b.PriceTotalWithFee)
	}
	if b.PlatformFeeTotal != 9000 {
		t.Errorf("expected platform fee 9000, got %d", b.PlatformFeeTotal)
	}
	if b.CoachPayoutTotal != 21000 {
		t.Errorf("expected coach payout 21000, got %d", b.CoachPayoutTotal)
	}
	if b.VATAmount != 0 {
		t.Errorf("expected flat-rate offer VAT 0, got %d", b.VATAmount)
	}
	if len(b.PerInstallment) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(b.PerInstallment))
	}
	for _, s := range b.PerInstallment {
		if s.Amount != 10000 {
			t.Errorf("installment %d: expected amount 10000, got %d", s.SessionNumber, s.Amount)
		}
	}
}

func TestComputeBreakdown_OrdinaryRegimeWithholdsFeeVAT(t *testing.T) {
	b, err := ComputeBreakdown(BreakdownInput{
		PricePerSession: 10000,
		TotalSessions:   3,
		Regime:          RegimeOrdinary,
	})
	if err != nil {
		t.Fatalf("ComputeBreakdown returned error: %v", err)
	}

	// 9000 / 1.22 = 7377 net, 1623 VAT on the fee.
	if b.PlatformFeeNet != 7377 {
		t.Errorf("expected platform fee net 7377, got %d", b.PlatformFeeNet)
	}
	if b.PlatformFeeVAT != 1623 {
		t.Errorf("expected platform fee VAT 1623, got %d", b.PlatformFeeVAT)
	}
	if b.CoachPayoutTotal != 19377 {
		t.Errorf("expected ordinary coach payout 19377, got %d", b.CoachPayoutTotal)
	}
	if b.VATAmount != 1623 {
		t.Errorf("expected offer VAT 1623, got %d", b.VATAmount)
	}

	// Both regimes stay visible regardless of the selected one.
	if b.CoachPayoutFlatRate != 21000 {
		t.Errorf("expected flat-rate figure 21000, got %d", b.CoachPayoutFlatRate)
	}
	if b.CoachPayoutOrdinary != b.CoachPayoutTotal {
		t.Errorf("expected ordinary figure %d to be selected, got %d", b.CoachPayoutOrdinary, b.CoachPayoutTotal)
	}
}

func TestComputeBreakdown_SplitInvariantsHoldAcrossInputs(t *testing.T) {
	prices := []int64{0, 1, 99, 3333, 10000, 10001, 12345, 99999}
	sessions := []int{1, 2, 3, 5, 7, 10, 12}
	fees := []float64{0, 2.5, 5, 10, 15}
	regimes := []FiscalRegime{RegimeFlatRate, RegimeOrdinary}

	for _, price := range prices {
		for _, n := range sessions {
			for _, fee := range fees {
				for _, regime := range regimes {
					b, err := ComputeBreakdown(BreakdownInput{
						PricePerSession:       price,
						TotalSessions:         n,
						InstallmentFeePercent: fee,
						Regime:                regime,
					})
					if err != nil {
						t.Fatalf("price=%d n=%d fee=%v regime=%s: %v", price, n, fee, regime, err)
					}

					if b.PriceTotal != b.VATAmount+b.PlatformFeeTotal+b.CoachPayoutTotal {
						t.Errorf("price=%d n=%d fee=%v regime=%s: split does not cover price total", price, n, fee, regime)
					}

					var sumAmount, sumCoach, sumVAT int64
					for _, s := range b.PerInstallment {
						sumAmount += s.Amount
						sumCoach += s.CoachPayout
						sumVAT += s.VATAmount
						if s.Amount != s.PlatformFee+s.CoachPayout+s.VATAmount {
							t.Errorf("price=%d n=%d fee=%v regime=%s session=%d: installment components do not cover its amount",
								price, n, fee, regime, s.SessionNumber)
						}
						if s.Amount < 0 || s.PlatformFee < 0 || s.CoachPayout < 0 || s.VATAmount < 0 {
							t.Errorf("price=%d n=%d fee=%v regime=%s session=%d: negative component in %+v",
								price, n, fee, regime, s.SessionNumber, s)
						}
					}
					if sumCoach != b.CoachPayoutTotal {
						t.Errorf("price=%d n=%d fee=%v regime=%s: coach payouts sum to %d, want %d",
							price, n, fee, regime, sumCoach, b.CoachPayoutTotal)
					}
					if sumVAT != b.VATAmount {
						t.Errorf("price=%d n=%d fee=%v regime=%s: VAT amounts sum to %d, want %d",
							price, n, fee, regime, sumVAT, b.VATAmount)
					}
					if sumAmount != b.PriceTotalWithFee {
						t.Errorf("price=%d n=%d fee=%v regime=%s: installment amounts sum to %d, want %d",
							price, n, fee, regime, sumAmount, b.PriceTotalWithFee)
					}
				}
			}
		}
	}
}

func TestComputeBreakdown_SubEuroPricesKeepComponentsNonNegative(t *testing.T) {
	// With sub-euro session prices the per-installment component shares are
	// fractions of a cent; independently rounding each one used to push the
	// last installment's coach payout below zero.
	tests := []struct {
		name      string
		in        BreakdownInput
		wantCoach int64
		wantVAT   int64
	}{
		{
			name:      "one cent over twelve sessions flat rate",
			in:        BreakdownInput{PricePerSession: 1, TotalSessions: 12, Regime: RegimeFlatRate},
			wantCoach: 8, // 12 - round(12 * 0.30)
			wantVAT:   0,
		},
		{
			name:      "one cent over ten sessions ordinary regime",
			in:        BreakdownInput{PricePerSession: 1, TotalSessions: 10, Regime: RegimeOrdinary},
			wantCoach: 6, // 10 - 3 fee - 1 VAT withheld
			wantVAT:   1,
		},
		{
			name:      "three cents over seven sessions with max surcharge",
			in:        BreakdownInput{PricePerSession: 3, TotalSessions: 7, InstallmentFeePercent: 15, Regime: RegimeOrdinary},
			wantCoach: 14, // 21 - 6 fee - 1 VAT withheld
			wantVAT:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ComputeBreakdown(tt.in)
			if err != nil {
				t.Fatalf("ComputeBreakdown returned error: %v", err)
			}

			var sumAmount, sumCoach, sumVAT int64
			for _, s := range b.PerInstallment {
				if s.Amount < 0 || s.PlatformFee < 0 || s.CoachPayout < 0 || s.VATAmount < 0 {
					t.Errorf("session %d: negative component in %+v", s.SessionNumber, s)
				}
				if s.Amount != s.PlatformFee+s.CoachPayout+s.VATAmount {
					t.Errorf("session %d: components do not cover the amount in %+v", s.SessionNumber, s)
				}
				sumAmount += s.Amount
				sumCoach += s.CoachPayout
				sumVAT += s.VATAmount
			}
			if sumAmount != b.PriceTotalWithFee {
				t.Errorf("installment amounts sum to %d, want %d", sumAmount, b.PriceTotalWithFee)
			}
			if sumCoach != tt.wantCoach {
				t.Errorf("coach payouts sum to %d, want %d", sumCoach, tt.wantCoach)
			}
			if sumVAT != tt.wantVAT {
				t.Errorf("VAT amounts sum to %d, want %d", sumVAT, tt.wantVAT)
			}
		})
	}
}

func TestComputeBreakdown_RemainderLandsOnLastInstallment(t *testing.T) {
	// 109.99 charged over 3 installments: 36.66 + 36.66 + 36.67.
	b, err := ComputeBreakdown(BreakdownInput{
		PricePerSession:       3333,
		TotalSessions:         3,
		InstallmentFeePercent: 10,
		Regime:                RegimeFlatRate,
	})
	if err != nil {
		t.Fatalf("ComputeBreakdown returned error: %v", err)
	}

	first := b.PerInstallment[0].Amount
	last := b.PerInstallment[2].Amount
	if b.PerInstallment[1].Amount != first {
		t.Errorf("expected equal leading installments, got %d and %d", first, b.PerInstallment[1].Amount)
	}
	if first*2+last != b.PriceTotalWithFee {
		t.Errorf("expected last installment to absorb the remainder, got %d + %d + %d != %d",
			first, first, last, b.PriceTotalWithFee)
	}
}

func TestComputeBreakdown_SurchargeDoesNotChangeSplitBase(t *testing.T) {
	base, err := ComputeBreakdown(BreakdownInput{
		PricePerSession: 10000,
		TotalSessions:   4,
		Regime:          RegimeFlatRate,
	})
	if err != nil {
		t.Fatalf("ComputeBreakdown returned error: %v", err)
	}
	surcharged, err := ComputeBreakdown(BreakdownInput{
		PricePerSession:       10000,
		TotalSessions:         4,
		InstallmentFeePercent: 10,
		Regime:                RegimeFlatRate,
	})
	if err != nil {
		t.Fatalf("ComputeBreakdown returned error: %v", err)
	}

	if surcharged.PriceTotalWithFee != 44000 {
		t.Errorf("expected surcharged total 44000, got %d", surcharged.PriceTotalWithFee)
	}
	if surcharged.PlatformFeeTotal != base.PlatformFeeTotal {
		t.Errorf("surcharge changed the platform fee: %d vs %d", surcharged.PlatformFeeTotal, base.PlatformFeeTotal)
	}
	if surcharged.CoachPayoutTotal != base.CoachPayoutTotal {
		t.Errorf("surcharge changed the coach payout: %d vs %d", surcharged.CoachPayoutTotal, base.CoachPayoutTotal)
	}
}

func TestComputeBreakdown_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   BreakdownInput
	}{
		{"negative price", BreakdownInput{PricePerSession: -1, TotalSessions: 1, Regime: RegimeFlatRate}},
		{"zero sessions", BreakdownInput{PricePerSession: 100, TotalSessions: 0, Regime: RegimeFlatRate}},
		{"fee percent above cap", BreakdownInput{PricePerSession: 100, TotalSessions: 1, InstallmentFeePercent: 15.5, Regime: RegimeFlatRate}},
		{"negative fee percent", BreakdownInput{PricePerSession: 100, TotalSessions: 1, InstallmentFeePercent: -1, Regime: RegimeFlatRate}},
		{"missing regime", BreakdownInput{PricePerSession: 100, TotalSessions: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeBreakdown(tt.in)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}
