package payments

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"masjid-collection/internal/domain"
)

func historyRows() []domain.Payment {
	day := func(m time.Month, d int) time.Time { return time.Date(2025, m, d, 9, 0, 0, 0, time.UTC) }
	return []domain.Payment{
		{Month: 1, Year: 2025, Amount: 500, PaymentDate: day(time.January, 5), PaymentMethod: "upi", TransactionID: "T-1", Status: domain.StatusPaid},
		{Month: 2, Year: 2025, Amount: 750.5, PaymentDate: day(time.February, 3), PaymentMethod: "cash", Status: domain.StatusPendingVerification},
		{Month: 3, Year: 2025, Amount: 100, PaymentDate: day(time.March, 1), PaymentMethod: "upi", Status: domain.StatusRejected},
	}
}

func monthsOf(rows []domain.Payment) []int {
	out := make([]int, len(rows))
	for i, p := range rows {
		out[i] = p.Month
	}
	return out
}

func TestHistory(t *testing.T) {
	tests := []struct {
		name string
		q    HistoryQuery
		want []int
	}{
		{"default newest first", HistoryQuery{Status: domain.FilterAll, Sort: SortDate}, []int{3, 2, 1}},
		{"date reversed", HistoryQuery{Sort: SortDate, Desc: true}, []int{1, 2, 3}},
		{"by month", HistoryQuery{Sort: SortMonth}, []int{1, 2, 3}},
		{"by amount desc", HistoryQuery{Sort: SortAmount, Desc: true}, []int{2, 1, 3}},
		{"paid only", HistoryQuery{Status: domain.StatusFilter(domain.StatusPaid)}, []int{1}},
		{"unpaid has no rows", HistoryQuery{Status: domain.StatusFilter(domain.StatusUnpaid)}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := monthsOf(History(historyRows(), tt.q))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestParseSortKey(t *testing.T) {
	if k, err := ParseSortKey(""); err != nil || k != SortDate {
		t.Fatalf("empty: %v %v", k, err)
	}
	if k, err := ParseSortKey("amount"); err != nil || k != SortAmount {
		t.Fatalf("amount: %v %v", k, err)
	}
	if _, err := ParseSortKey("house"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown: %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, historyRows()[:2]); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := strings.Join([]string{
		"Date,Month,Year,Amount,Payment Method,Transaction ID,Status",
		"05/01/2025,January,2025,₹500.00,UPI,T-1,PAID",
		"03/02/2025,February,2025,₹750.50,CASH,N/A,PENDING_VERIFICATION",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("csv mismatch:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteCSVLargeAmountUnquoted(t *testing.T) {
	rows := []domain.Payment{{Month: 1, Year: 2025, Amount: 12000, PaymentMethod: "upi", Status: domain.StatusPaid,
		PaymentDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)}}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !strings.Contains(buf.String(), "05/01/2025,January,2025,₹12000.00,UPI,N/A,PAID") {
		t.Fatalf("unexpected row:\n%s", buf.String())
	}
}

func TestFormatINR(t *testing.T) {
	if got := FormatINR(12000); got != "₹12,000.00" {
		t.Fatalf("FormatINR = %q", got)
	}
	if got := csvAmount(1000.0 / 6); got != "₹166.67" {
		t.Fatalf("csvAmount = %q", got)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("expected header only, got %q", buf.String())
	}
}

func TestCSVFilename(t *testing.T) {
	if got := CSVFilename(2025); got != "payment-history-2025.csv" {
		t.Fatalf("got %q", got)
	}
}
