package payments

import (
	"testing"

	"masjid-collection/internal/domain"
)

func TestResolveStatus(t *testing.T) {
	rows := []domain.Payment{
		{Month: 1, Year: 2025, Status: domain.StatusPaid},
		{Month: 3, Year: 2025, Status: domain.StatusRejected},
		{Month: 3, Year: 2025, Status: domain.StatusPaid},
		{Month: 7, Year: 2025, Status: domain.StatusPendingVerification},
	}
	tests := []struct {
		month int
		want  domain.Status
	}{
		{1, domain.StatusPaid},
		{2, domain.StatusUnpaid},
		{3, domain.StatusRejected}, // first row wins
		{7, domain.StatusPendingVerification},
		{12, domain.StatusUnpaid},
	}
	for _, tt := range tests {
		if got := ResolveStatus(rows, tt.month); got != tt.want {
			t.Errorf("month %d: got %s, want %s", tt.month, got, tt.want)
		}
	}
	if got := ResolveStatus(nil, 5); got != domain.StatusUnpaid {
		t.Errorf("empty rows: got %s", got)
	}
}

func TestResolveStatusAtChecksYear(t *testing.T) {
	rows := []domain.Payment{{Month: 12, Year: 2024, Status: domain.StatusPaid}}
	if got := ResolveStatusAt(rows, domain.YearMonth{Year: 2024, Month: 12}); got != domain.StatusPaid {
		t.Fatalf("got %s", got)
	}
	if got := ResolveStatusAt(rows, domain.YearMonth{Year: 2025, Month: 12}); got != domain.StatusUnpaid {
		t.Fatalf("other year: got %s", got)
	}
}

func TestStatuses(t *testing.T) {
	rows := []domain.Payment{{Month: 2, Year: 2025, Amount: 500, Status: domain.StatusPaid}}
	got := Statuses(rows, 2025, []int{1, 2})
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Status != domain.StatusUnpaid || got[0].Payment != nil || got[0].Name != "January" {
		t.Errorf("january: %+v", got[0])
	}
	if got[1].Status != domain.StatusPaid || got[1].Payment == nil || got[1].Payment.Amount != 500 {
		t.Errorf("february: %+v", got[1])
	}
}
