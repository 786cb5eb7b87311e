package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"strings"
	"testing"
	"time"

	"masjid-collection/internal/auth"
	"masjid-collection/internal/domain"
	"masjid-collection/internal/storage"
	"masjid-collection/internal/storage/memory"

	"github.com/google/subcommands"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	auth.PasswordCost = bcrypt.MinCost
}

func run(t *testing.T, st storage.Store, args ...string) (string, subcommands.ExitStatus) {
	t.Helper()
	var out bytes.Buffer
	open := func(context.Context) (storage.Store, error) { return st, nil }

	fs := flag.NewFlagSet("masjidctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cdr := subcommands.NewCommander(fs, "masjidctl")
	cdr.Output, cdr.Error = io.Discard, io.Discard
	for _, c := range commands(open, &out) {
		cdr.Register(c, "")
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	status := cdr.Execute(context.Background())
	return out.String(), status
}

func seedHousehold(t *testing.T, st *memory.Store) (domain.Mosque, domain.Household) {
	t.Helper()
	ctx := context.Background()
	m, err := st.CreateMosque(ctx, domain.Mosque{Name: "Jama Masjid", City: "Hyderabad", State: "Telangana", UPIID: "jama@upi"})
	if err != nil {
		t.Fatal(err)
	}
	h, err := st.CreateHousehold(ctx, domain.Household{MosqueID: m.ID, HouseNumber: "7", HeadOfHouse: "Ameen", AnnualAmount: 6000})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []domain.Payment{
		{HouseholdID: h.ID, Year: 2025, Month: 1, Amount: 500, Status: domain.StatusPaid, PaymentMethod: "upi",
			PaymentDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)},
		{HouseholdID: h.ID, Year: 2025, Month: 2, Amount: 500, Status: domain.StatusRejected, PaymentMethod: "upi",
			PaymentDate: time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)},
	} {
		if _, err := st.InsertPayment(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	return m, h
}

func TestCreateMosqueAndAdmin(t *testing.T) {
	st := memory.New()

	out, status := run(t, st, "create-mosque", "-name", "Makkah Masjid", "-city", "Hyderabad", "-state", "Telangana", "-upi", "makkah@upi")
	if status != subcommands.ExitSuccess {
		t.Fatalf("create-mosque status %v", status)
	}
	mosqueID := strings.TrimSpace(out)

	out, status = run(t, st, "create-admin", "-email", "Admin@Example.com", "-password", "secret-pass", "-role", "mosque_admin", "-mosque", mosqueID)
	if status != subcommands.ExitSuccess {
		t.Fatalf("create-admin status %v", status)
	}
	if !strings.Contains(out, "mosque_admin admin@example.com") {
		t.Fatalf("unexpected output %q", out)
	}

	u, err := st.GetUserByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.MosqueID == nil || u.MosqueID.String() != mosqueID || u.City != "Hyderabad" {
		t.Fatalf("admin not bound to mosque: %+v", u)
	}
}

func TestCreateAdminUsageErrors(t *testing.T) {
	st := memory.New()
	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"missing password", []string{"create-admin", "-email", "a@b.c"}, subcommands.ExitUsageError},
		{"unknown role", []string{"create-admin", "-email", "a@b.c", "-password", "12345678", "-role", "imam"}, subcommands.ExitUsageError},
		{"bad mosque id", []string{"create-admin", "-email", "a@b.c", "-password", "12345678", "-mosque", "x"}, subcommands.ExitUsageError},
		{"mosque admin without mosque", []string{"create-admin", "-email", "a@b.c", "-password", "12345678"}, subcommands.ExitFailure},
		{"household role", []string{"create-admin", "-email", "a@b.c", "-password", "12345678", "-role", "household"}, subcommands.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := run(t, st, tt.args...); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExport(t *testing.T) {
	st := memory.New()
	_, h := seedHousehold(t, st)

	out, status := run(t, st, "export", "-household", h.ID.String(), "-year", "2025", "-sort", "month")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status %v", status)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", out)
	}
	if !strings.HasPrefix(lines[1], "05/01/2025,January,2025,₹500.00,UPI") {
		t.Fatalf("first row %q", lines[1])
	}

	out, _ = run(t, st, "export", "-household", h.ID.String(), "-year", "2025", "-status", "paid")
	if n := strings.Count(strings.TrimSpace(out), "\n"); n != 1 {
		t.Fatalf("status filter ignored: %q", out)
	}

	if _, status := run(t, st, "export", "-household", "nope"); status != subcommands.ExitUsageError {
		t.Fatalf("bad id status %v", status)
	}
}

func TestReport(t *testing.T) {
	st := memory.New()
	_, h := seedHousehold(t, st)

	out, status := run(t, st, "report", "-household", h.ID.String(), "-from", "2024-12", "-to", "2025-03")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status %v", status)
	}
	for _, want := range []string{
		"House 7 (Ameen), 2024-12 to 2025-03",
		"December 2024",
		"paid 1, pending 0, rejected 1, unpaid 2",
		"collected ₹500.00 of ₹2,000.00 expected",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	if _, status := run(t, st, "report", "-household", h.ID.String(), "-from", "2025/01"); status != subcommands.ExitUsageError {
		t.Fatalf("bad range status %v", status)
	}
	if _, status := run(t, st, "report", "-household", h.ID.String(), "-from", "0001-01", "-to", "9999-12"); status != subcommands.ExitUsageError {
		t.Fatalf("huge window status %v", status)
	}
}
