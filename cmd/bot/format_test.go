package main

import (
	"strings"
	"testing"
	"time"

	"masjid-collection/internal/domain"
	"masjid-collection/internal/events"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
)

func TestParseStatusCommand(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name     string
		text     string
		wantYear int
		wantErr  bool
	}{
		{"default year", "/status " + id.String(), 2025, false},
		{"explicit year", "/status " + id.String() + " 2024", 2024, false},
		{"missing id", "/status", 0, true},
		{"bad id", "/status 42", 0, true},
		{"bad year", "/status " + id.String() + " soon", 0, true},
		{"too many args", "/status " + id.String() + " 2024 x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, year, err := parseStatusCommand(tt.text, 2025)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotID != id || year != tt.wantYear {
				t.Fatalf("got %s %d", gotID, year)
			}
		})
	}
}

func TestFormatEvent(t *testing.T) {
	h := domain.Household{ID: uuid.New(), MosqueID: uuid.New()}
	at := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	msg := formatEvent(events.Submitted(h, uuid.New(), 2025, []int{1, 2}, 1000, at))
	for _, want := range []string{"New payment submitted", "January, February 2025", "₹1,000.00", h.ID.String()} {
		if !strings.Contains(msg, want) {
			t.Errorf("submitted message %q missing %q", msg, want)
		}
	}

	p := domain.Payment{ID: uuid.New(), Month: 3, Year: 2025, Amount: 500, Status: domain.StatusRejected}
	msg = formatEvent(events.Verified(h, p, at))
	if !strings.Contains(msg, "Payment rejected") || !strings.Contains(msg, "March 2025") {
		t.Errorf("verified message %q", msg)
	}
}

func TestFormatStatuses(t *testing.T) {
	h := domain.Household{HouseNumber: "12B", HeadOfHouse: "Yusuf", AnnualAmount: 6000}
	rows := []domain.Payment{
		{Year: 2025, Month: 1, Amount: 500, Status: domain.StatusPaid},
		{Year: 2025, Month: 2, Amount: 500, Status: domain.StatusPendingVerification},
	}
	msg := formatStatuses(h, 2025, rows)
	if !strings.Contains(msg, "January: paid") || !strings.Contains(msg, "February: pending verification") {
		t.Fatalf("statuses missing: %q", msg)
	}
	if !strings.Contains(msg, "March: unpaid") {
		t.Fatalf("unpaid month missing: %q", msg)
	}
	if !strings.Contains(msg, "Paid: ₹500.00 of ₹6,000.00") {
		t.Fatalf("totals wrong: %q", msg)
	}
}

func TestFixEncoding(t *testing.T) {
	if got := fixEncoding("/status"); got != "/status" {
		t.Fatalf("utf-8 input changed: %q", got)
	}
	raw, err := charmap.Windows1251.NewEncoder().String("Привет")
	if err != nil {
		t.Fatal(err)
	}
	if got := fixEncoding(raw); got != "Привет" {
		t.Fatalf("got %q", got)
	}
}
