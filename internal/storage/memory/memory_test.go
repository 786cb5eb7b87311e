package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"masjid-collection/internal/domain"
	"masjid-collection/internal/storage"

	"github.com/google/uuid"
)

func seedHousehold(t *testing.T, s *Store, city string, annual float64) (domain.Mosque, domain.Household) {
	t.Helper()
	ctx := context.Background()
	m, err := s.CreateMosque(ctx, domain.Mosque{Name: "Masjid " + city, City: city, State: "Telangana"})
	if err != nil {
		t.Fatal(err)
	}
	h, err := s.CreateHousehold(ctx, domain.Household{MosqueID: m.ID, HouseNumber: "1", AnnualAmount: annual})
	if err != nil {
		t.Fatal(err)
	}
	return m, h
}

func TestSubmitPaymentGroupIsAtomic(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, h := seedHousehold(t, s, "Hyderabad", 1200)
	if _, err := s.InsertPayment(ctx, domain.Payment{HouseholdID: h.ID, Month: 2, Year: 2025, Status: domain.StatusPaid}); err != nil {
		t.Fatal(err)
	}

	writes := []storage.PaymentWrite{
		{Payment: domain.Payment{HouseholdID: h.ID, Month: 1, Year: 2025, Status: domain.StatusPendingVerification}},
		{Payment: domain.Payment{HouseholdID: h.ID, Month: 2, Year: 2025, Status: domain.StatusPendingVerification}},
	}
	g := domain.PaymentGroup{ID: uuid.New(), HouseholdID: h.ID}
	if _, err := s.SubmitPaymentGroup(ctx, g, writes); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	rows, _ := s.ListPayments(ctx, h.ID, 2025)
	if len(rows) != 1 {
		t.Fatalf("partial write: %d rows", len(rows))
	}
	if _, ok := s.Group(g.ID); ok {
		t.Fatal("group must not be stored")
	}
}

func TestWritePaymentResubmitRequiresRejected(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, h := seedHousehold(t, s, "Hyderabad", 1200)
	p, _ := s.InsertPayment(ctx, domain.Payment{HouseholdID: h.ID, Month: 3, Year: 2025, Status: domain.StatusPaid})

	p.Status = domain.StatusPendingVerification
	if err := s.WritePayment(ctx, storage.PaymentWrite{Payment: p, Resubmit: true}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := s.WritePayment(ctx, storage.PaymentWrite{Payment: domain.Payment{ID: uuid.New()}, Resubmit: true}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListPaymentsBetween(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, h := seedHousehold(t, s, "Hyderabad", 1200)
	for _, ym := range []domain.YearMonth{{Year: 2024, Month: 10}, {Year: 2024, Month: 12}, {Year: 2025, Month: 2}, {Year: 2025, Month: 4}} {
		if _, err := s.InsertPayment(ctx, domain.Payment{HouseholdID: h.ID, Year: ym.Year, Month: ym.Month, Status: domain.StatusPaid}); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := s.ListPaymentsBetween(ctx, h.ID, domain.YearMonth{Year: 2024, Month: 11}, domain.YearMonth{Year: 2025, Month: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Month != 12 || rows[1].Month != 2 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestRegistrationLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	m, _ := seedHousehold(t, s, "Hyderabad", 1200)

	r, err := s.CreateRegistration(ctx, domain.HouseholdRegistration{
		MosqueID:  m.ID,
		Email:     "family@example.com",
		FullName:  "Ahmed",
		Household: domain.Household{HouseNumber: "22", AnnualAmount: 2400},
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	pending, _ := s.ListRegistrations(ctx, m.ID, domain.RegistrationPending)
	if len(pending) != 1 {
		t.Fatalf("pending = %d", len(pending))
	}

	h, u, err := s.ApproveRegistration(ctx, r.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if h.MosqueID != m.ID || u.Role != domain.RoleHousehold || u.HouseholdID == nil || *u.HouseholdID != h.ID {
		t.Fatalf("household %+v user %+v", h, u)
	}
	if _, _, err := s.ApproveRegistration(ctx, r.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("approve twice: %v", err)
	}
	if err := s.RejectRegistration(ctx, r.ID, "late"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("reject approved: %v", err)
	}
	if _, err := s.GetUserByEmail(ctx, "FAMILY@example.com"); err != nil {
		t.Fatalf("user lookup is case-insensitive: %v", err)
	}
}

func TestDeleteHouseholdCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, h := seedHousehold(t, s, "Hyderabad", 1200)
	_, _ = s.InsertPayment(ctx, domain.Payment{HouseholdID: h.ID, Month: 1, Year: 2025, Status: domain.StatusPaid})

	if err := s.DeleteHousehold(ctx, h.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetHousehold(ctx, h.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("household still there: %v", err)
	}
	rows, _ := s.ListPayments(ctx, h.ID, 2025)
	if len(rows) != 0 {
		t.Fatalf("payments not removed: %d", len(rows))
	}
}

func TestCollectionStats(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, h1 := seedHousehold(t, s, "Hyderabad", 1200)
	_, h2 := seedHousehold(t, s, "Pune", 2400)

	for _, p := range []domain.Payment{
		{HouseholdID: h1.ID, Month: 1, Year: 2025, Amount: 100, Status: domain.StatusPaid},
		{HouseholdID: h1.ID, Month: 2, Year: 2025, Amount: 100, Status: domain.StatusPendingVerification},
		{HouseholdID: h2.ID, Month: 1, Year: 2025, Amount: 200, Status: domain.StatusPaid},
		{HouseholdID: h2.ID, Month: 3, Year: 2025, Amount: 200, Status: domain.StatusRejected},
		{HouseholdID: h2.ID, Month: 4, Year: 2024, Amount: 200, Status: domain.StatusPaid},
	} {
		if _, err := s.InsertPayment(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	st, err := s.CollectionStats(ctx, domain.StatsScope{Level: domain.LevelNational}, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mosques != 2 || st.Households != 2 || st.RejectedCount != 1 || st.PaidByMonth[0] != 2 {
		t.Fatalf("stats = %+v", st)
	}
	if st.Collected.String() != "300" || st.Pending.String() != "100" || st.ExpectedAmount.String() != "3600" {
		t.Fatalf("amounts = %s %s %s", st.Collected, st.Pending, st.ExpectedAmount)
	}
	if st.Outstanding().String() != "3200" {
		t.Fatalf("outstanding = %s", st.Outstanding())
	}

	city, _ := s.CollectionStats(ctx, domain.StatsScope{Level: domain.LevelCity, Key: "pune"}, 2025)
	if city.Mosques != 1 || city.Collected.String() != "200" {
		t.Fatalf("city stats = %+v", city)
	}
}
