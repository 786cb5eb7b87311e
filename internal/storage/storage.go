// internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"masjid-collection/internal/domain"

	"github.com/google/uuid"
)

type MosqueStorage interface {
	CreateMosque(ctx context.Context, m domain.Mosque) (domain.Mosque, error)
	GetMosque(ctx context.Context, id uuid.UUID) (*domain.Mosque, error)
}

type UserStorage interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type HouseholdStorage interface {
	CreateHousehold(ctx context.Context, h domain.Household) (domain.Household, error)
	GetHousehold(ctx context.Context, id uuid.UUID) (*domain.Household, error)
	ListHouseholds(ctx context.Context, mosqueID uuid.UUID) ([]domain.Household, error)
	UpdateHousehold(ctx context.Context, h domain.Household) error
	DeleteHousehold(ctx context.Context, id uuid.UUID) error
}

// PaymentWrite is one month of a submission: a new row, or the resubmission
// of a rejected row that keeps its id.
type PaymentWrite struct {
	Payment  domain.Payment
	Resubmit bool
}

type PaymentStorage interface {
	// ListPayments returns every row of a household for a year, unfiltered.
	ListPayments(ctx context.Context, householdID uuid.UUID, year int) ([]domain.Payment, error)
	ListPaymentsBetween(ctx context.Context, householdID uuid.UUID, from, to domain.YearMonth) ([]domain.Payment, error)
	PaymentsForMonths(ctx context.Context, householdID uuid.UUID, year int, months []int) ([]domain.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// InsertPayment stores a single row; ErrConflict if the month already has one.
	InsertPayment(ctx context.Context, p domain.Payment) (domain.Payment, error)
	CreatePaymentGroup(ctx context.Context, g domain.PaymentGroup) (domain.PaymentGroup, error)
	// WritePayment applies a single submission write outside of any transaction.
	WritePayment(ctx context.Context, w PaymentWrite) error
	// SubmitPaymentGroup stores the group and all writes, or nothing.
	SubmitPaymentGroup(ctx context.Context, g domain.PaymentGroup, writes []PaymentWrite) (domain.PaymentGroup, error)

	// VerifyPayment moves a pending row to paid or rejected and marks its group
	// paid once every member is paid.
	VerifyPayment(ctx context.Context, id uuid.UUID, approve bool, reason string, at time.Time) (domain.Payment, error)
}

type RegistrationStorage interface {
	CreateRegistration(ctx context.Context, r domain.HouseholdRegistration) (domain.HouseholdRegistration, error)
	GetRegistration(ctx context.Context, id uuid.UUID) (*domain.HouseholdRegistration, error)
	ListRegistrations(ctx context.Context, mosqueID uuid.UUID, status domain.RegistrationStatus) ([]domain.HouseholdRegistration, error)
	// ApproveRegistration creates the household and its user together.
	ApproveRegistration(ctx context.Context, id uuid.UUID) (domain.Household, domain.User, error)
	RejectRegistration(ctx context.Context, id uuid.UUID, reason string) error
}

type StatsStorage interface {
	CollectionStats(ctx context.Context, scope domain.StatsScope, year int) (domain.CollectionStats, error)
}

// Store is everything the application needs from a backend.
type Store interface {
	MosqueStorage
	UserStorage
	HouseholdStorage
	PaymentStorage
	RegistrationStorage
	StatsStorage
	Close() error
}
