package payments

import (
	"errors"
	"testing"

	"masjid-collection/internal/domain"
)

func TestBuildReportAcrossYears(t *testing.T) {
	h := domain.Household{HouseNumber: "7", AnnualAmount: 1200}
	rows := []domain.Payment{
		{Month: 11, Year: 2024, Amount: 100, Status: domain.StatusPaid},
		{Month: 1, Year: 2025, Amount: 100, Status: domain.StatusPendingVerification},
		{Month: 2, Year: 2025, Amount: 100, Status: domain.StatusRejected},
		{Month: 6, Year: 2025, Amount: 100, Status: domain.StatusPaid}, // outside the window
	}
	r := BuildReport(h, rows, domain.YearMonth{Year: 2024, Month: 11}, domain.YearMonth{Year: 2025, Month: 3})

	if len(r.Months) != 5 {
		t.Fatalf("months = %d", len(r.Months))
	}
	if r.Paid != 1 || r.Pending != 1 || r.Rejected != 1 || r.Unpaid != 2 {
		t.Fatalf("counts = paid %d pending %d rejected %d unpaid %d", r.Paid, r.Pending, r.Rejected, r.Unpaid)
	}
	if r.PaidAmount != 100 || r.ExpectedTotal != 500 {
		t.Fatalf("amounts = %v / %v", r.PaidAmount, r.ExpectedTotal)
	}
	if r.Months[1].Year != 2024 || r.Months[1].Month != 12 || r.Months[1].Status != domain.StatusUnpaid {
		t.Fatalf("december = %+v", r.Months[1])
	}
}

func TestBuildReportEmptyWindow(t *testing.T) {
	r := BuildReport(domain.Household{}, nil, domain.YearMonth{Year: 2025, Month: 5}, domain.YearMonth{Year: 2025, Month: 4})
	if r.Months == nil || len(r.Months) != 0 {
		t.Fatalf("expected empty, non-nil months: %v", r.Months)
	}
}

func TestCheckReportWindow(t *testing.T) {
	ym := func(y, m int) domain.YearMonth { return domain.YearMonth{Year: y, Month: m} }
	tests := []struct {
		name     string
		from, to domain.YearMonth
		wantErr  bool
	}{
		{"single month", ym(2025, 3), ym(2025, 3), false},
		{"ten years", ym(2016, 1), ym(2025, 12), false},
		{"one month too many", ym(2016, 1), ym(2026, 1), true},
		{"whole calendar", ym(1, 1), ym(9999, 12), true},
		{"inverted", ym(2025, 6), ym(2025, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReportWindow(tt.from, tt.to)
			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v", err)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}
