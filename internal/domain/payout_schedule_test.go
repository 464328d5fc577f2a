package domain

import (
	"testing"
	"time"
)

func TestNextPayoutDate_AllWeekdays(t *testing.T) {
	// 2024-01-01 is a Monday.
	tests := []struct {
		paidAt string
		want   string
	}{
		{"2024-01-01", "2024-01-08"}, // Monday schedules a full week out
		{"2024-01-02", "2024-01-08"}, // Tuesday
		{"2024-01-03", "2024-01-08"}, // Wednesday
		{"2024-01-04", "2024-01-08"}, // Thursday
		{"2024-01-05", "2024-01-08"}, // Friday
		{"2024-01-06", "2024-01-08"}, // Saturday
		{"2024-01-07", "2024-01-08"}, // Sunday
	}

	for _, tt := range tests {
		paidAt, err := time.Parse("2006-01-02", tt.paidAt)
		if err != nil {
			t.Fatalf("bad fixture %q: %v", tt.paidAt, err)
		}
		got := NextPayoutDate(paidAt)
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("NextPayoutDate(%s %s) = %s, want %s",
				tt.paidAt, paidAt.Weekday(), got.Format("2006-01-02"), tt.want)
		}
	}
}

func TestNextPayoutDate_AlwaysStrictlyFutureMonday(t *testing.T) {
	start := time.Date(2024, 1, 1, 14, 30, 0, 0, time.UTC)
	for day := 0; day < 400; day++ {
		paidAt := start.AddDate(0, 0, day)
		got := NextPayoutDate(paidAt)

		if got.Weekday() != time.Monday {
			t.Errorf("NextPayoutDate(%s) fell on %s", paidAt.Format("2006-01-02"), got.Weekday())
		}
		if !got.After(paidAt.Truncate(24 * time.Hour)) {
			t.Errorf("NextPayoutDate(%s) = %s is not strictly in the future",
				paidAt.Format("2006-01-02"), got.Format("2006-01-02"))
		}
		if diff := got.Sub(paidAt); diff <= 0 || diff > 7*24*time.Hour {
			t.Errorf("NextPayoutDate(%s) = %s is out of the one-week window",
				paidAt.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}
}

func TestNextPayoutDate_PreservesLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	paidAt := time.Date(2024, 3, 6, 18, 0, 0, 0, loc)

	got := NextPayoutDate(paidAt)
	if got.Location() != loc {
		t.Errorf("expected location %v, got %v", loc, got.Location())
	}
	if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
		t.Errorf("expected midnight, got %02d:%02d:%02d", h, m, s)
	}
}
