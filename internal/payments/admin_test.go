package payments

import (
	"context"
	"errors"
	"testing"

	"masjid-collection/internal/domain"
)

func TestRecordManual(t *testing.T) {
	f := newFixture(t, 1200)
	ctx := context.Background()

	p, err := RecordManual(ctx, f.store, f.household, ManualEntry{Month: 4, Year: 2025}, fixedNow)
	if err != nil {
		t.Fatalf("RecordManual: %v", err)
	}
	if p.Status != domain.StatusPaid || p.Amount != 100 || p.PaymentMethod != "cash" {
		t.Fatalf("payment = %+v", p)
	}

	if _, err := RecordManual(ctx, f.store, f.household, ManualEntry{Month: 4, Year: 2025}, fixedNow); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate month: %v", err)
	}
	if _, err := RecordManual(ctx, f.store, f.household, ManualEntry{Month: 0, Year: 2025}, fixedNow); !errors.Is(err, domain.ErrInvalidMonth) {
		t.Fatalf("month 0: %v", err)
	}
	if _, err := RecordManual(ctx, f.store, f.household, ManualEntry{Month: 5, Year: 2025, Amount: -1}, fixedNow); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("negative: %v", err)
	}
}

func TestVerifySettlesGroup(t *testing.T) {
	f := newFixture(t, 1200)
	ctx := context.Background()
	s := newSubmission(t, f, f.store, &fakeBlobs{}, ModeAtomic)
	readyToSubmit(t, s, 1, 2)
	r, err := s.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rows := s.Rows()

	if _, err := Verify(ctx, f.store, rows[0].ID, false, "  ", fixedNow); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("reject without reason: %v", err)
	}

	if _, err := Verify(ctx, f.store, rows[0].ID, true, "", fixedNow); err != nil {
		t.Fatalf("approve first: %v", err)
	}
	if g, _ := f.store.Group(r.Group.ID); g.Status != domain.StatusPendingVerification {
		t.Fatalf("group settled too early: %s", g.Status)
	}
	if _, err := Verify(ctx, f.store, rows[1].ID, true, "", fixedNow); err != nil {
		t.Fatalf("approve second: %v", err)
	}
	g, _ := f.store.Group(r.Group.ID)
	if g.Status != domain.StatusPaid || g.PaidAt == nil {
		t.Fatalf("group = %+v", g)
	}

	if _, err := Verify(ctx, f.store, rows[1].ID, true, "", fixedNow); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("verify twice: %v", err)
	}
}

func TestVerifyReject(t *testing.T) {
	f := newFixture(t, 1200)
	p := f.seed(t, 3, domain.StatusPendingVerification)
	got, err := Verify(context.Background(), f.store, p.ID, false, "amount mismatch", fixedNow)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Status != domain.StatusRejected || got.RejectionReason != "amount mismatch" {
		t.Fatalf("payment = %+v", got)
	}
}
