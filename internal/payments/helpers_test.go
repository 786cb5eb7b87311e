package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"masjid-collection/internal/blob"
	"masjid-collection/internal/domain"
	"masjid-collection/internal/storage"
	"masjid-collection/internal/storage/memory"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)

type fakeBlobs struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeBlobs) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://files.test/" + key, nil
}

// flakyStore fails writes of the listed months, or the whole atomic submit.
type flakyStore struct {
	*memory.Store
	failMonths map[int]bool
	failSubmit bool
}

var errDisk = errors.New("disk on fire")

func (f *flakyStore) WritePayment(ctx context.Context, w storage.PaymentWrite) error {
	if f.failMonths[w.Payment.Month] {
		return errDisk
	}
	return f.Store.WritePayment(ctx, w)
}

func (f *flakyStore) SubmitPaymentGroup(ctx context.Context, g domain.PaymentGroup, writes []storage.PaymentWrite) (domain.PaymentGroup, error) {
	if f.failSubmit {
		return domain.PaymentGroup{}, errDisk
	}
	return f.Store.SubmitPaymentGroup(ctx, g, writes)
}

type fixture struct {
	store     *memory.Store
	mosque    domain.Mosque
	household domain.Household
	userID    uuid.UUID
}

func newFixture(t *testing.T, annual float64) fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	m, err := st.CreateMosque(ctx, domain.Mosque{Name: "Masjid-e-Noor", City: "Hyderabad", State: "Telangana", UPIID: "noor@upi"})
	if err != nil {
		t.Fatalf("CreateMosque: %v", err)
	}
	h, err := st.CreateHousehold(ctx, domain.Household{MosqueID: m.ID, HouseNumber: "12-A", HeadOfHouse: "Yusuf", AnnualAmount: annual})
	if err != nil {
		t.Fatalf("CreateHousehold: %v", err)
	}
	return fixture{store: st, mosque: m, household: h, userID: uuid.New()}
}

func (f fixture) seed(t *testing.T, month int, status domain.Status) domain.Payment {
	t.Helper()
	p, err := f.store.InsertPayment(context.Background(), domain.Payment{
		HouseholdID: f.household.ID,
		Month:       month,
		Year:        2025,
		Amount:      MonthlyAmount(f.household.AnnualAmount),
		Status:      status,
	})
	if err != nil {
		t.Fatalf("seed %d: %v", month, err)
	}
	return p
}

func screenshot() blob.Object {
	return blob.Object{ContentType: "image/webp", Ext: ".webp", Data: []byte("RIFF....WEBP")}
}
