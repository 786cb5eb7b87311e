package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"masjid-collection/internal/domain"
	"masjid-collection/internal/storage"

	"github.com/google/uuid"
)

type ManualEntry struct {
	Month         int
	Year          int
	Amount        float64 // 0 means the household's monthly amount
	PaymentMethod string
	TransactionID string
}

// RecordManual stores a payment an admin received directly. It skips
// verification and is stored as paid.
func RecordManual(ctx context.Context, store storage.PaymentStorage, h domain.Household, e ManualEntry, now time.Time) (domain.Payment, error) {
	if !validMonth(e.Month) {
		return domain.Payment{}, domain.ErrInvalidMonth
	}
	amount := e.Amount
	if amount == 0 {
		amount = MonthlyAmount(h.AnnualAmount)
	}
	if amount < 0 {
		return domain.Payment{}, fmt.Errorf("%w: negative amount", domain.ErrInvalidInput)
	}
	method := strings.TrimSpace(e.PaymentMethod)
	if method == "" {
		method = "cash"
	}
	p := domain.Payment{
		ID:            uuid.New(),
		HouseholdID:   h.ID,
		Month:         e.Month,
		Year:          e.Year,
		Amount:        amount,
		PaymentDate:   now,
		PaymentMethod: method,
		TransactionID: strings.TrimSpace(e.TransactionID),
		Status:        domain.StatusPaid,
		CreatedAt:     now,
	}
	return store.InsertPayment(ctx, p)
}

// Verify approves or rejects a pending payment. A rejection needs a reason.
func Verify(ctx context.Context, store storage.PaymentStorage, id uuid.UUID, approve bool, reason string, now time.Time) (domain.Payment, error) {
	reason = strings.TrimSpace(reason)
	if !approve && reason == "" {
		return domain.Payment{}, fmt.Errorf("%w: rejection reason is required", domain.ErrInvalidInput)
	}
	if approve {
		reason = ""
	}
	return store.VerifyPayment(ctx, id, approve, reason, now)
}
