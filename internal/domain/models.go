// internal/domain/models.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Mosque struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	UPIID         string    `json:"upi_id"`
	MinimumAmount float64   `json:"minimum_amount"`
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	MosqueID     *uuid.UUID `json:"mosque_id,omitempty"`
	HouseholdID  *uuid.UUID `json:"household_id,omitempty"`
	City         string     `json:"city,omitempty"`
}

// Household: одна семья (дом) при мечети.
type Household struct {
	ID            uuid.UUID `json:"id"`
	MosqueID      uuid.UUID `json:"mosque_id"`
	HouseNumber   string    `json:"house_number"`
	HeadOfHouse   string    `json:"head_of_house"`
	TotalMembers  int       `json:"total_members"`
	MaleMembers   int       `json:"male_members"`
	FemaleMembers int       `json:"female_members"`
	ContactNumber string    `json:"contact_number"`
	AnnualAmount  float64   `json:"annual_amount"`
}

// Payment is the contribution record of one household for one month.
// A month without a row is unpaid.
type Payment struct {
	ID              uuid.UUID  `json:"id"`
	HouseholdID     uuid.UUID  `json:"household_id"`
	Month           int        `json:"month"`
	Year            int        `json:"year"`
	Amount          float64    `json:"amount"`
	PaymentDate     time.Time  `json:"payment_date"`
	PaymentMethod   string     `json:"payment_method"`
	TransactionID   string     `json:"transaction_id,omitempty"`
	Status          Status     `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ReceiptURL      string     `json:"receipt_url,omitempty"`
	PaymentGroupID  *uuid.UUID `json:"payment_group_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PaymentGroup bundles the payments of one submission with its screenshot.
type PaymentGroup struct {
	ID            uuid.UUID  `json:"id"`
	HouseholdID   uuid.UUID  `json:"household_id"`
	TotalAmount   float64    `json:"total_amount"`
	ScreenshotURL string     `json:"screenshot_url"`
	Status        Status     `json:"status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// HouseholdRegistration is a signup waiting for a mosque admin decision.
type HouseholdRegistration struct {
	ID              uuid.UUID          `json:"id"`
	MosqueID        uuid.UUID          `json:"mosque_id"`
	Email           string             `json:"email"`
	FullName        string             `json:"full_name"`
	PasswordHash    string             `json:"-"`
	Household       Household          `json:"household"`
	Status          RegistrationStatus `json:"status"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// YearMonth is a calendar month of a specific year.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// Next returns the following calendar month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month >= 12 {
		return YearMonth{Year: ym.Year + 1, Month: 1}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// ParseYearMonth parses "2025-03".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, err
	}
	return YearMonth{Year: t.Year(), Month: int(t.Month())}, nil
}

func (ym YearMonth) String() string {
	return time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// StatsLevel is the scope of an aggregation.
type StatsLevel string

const (
	LevelMosque   StatsLevel = "mosque"
	LevelCity     StatsLevel = "city"
	LevelState    StatsLevel = "state"
	LevelNational StatsLevel = "national"
)

func (l StatsLevel) IsValid() bool {
	switch l {
	case LevelMosque, LevelCity, LevelState, LevelNational:
		return true
	}
	return false
}

type StatsScope struct {
	Level StatsLevel
	// Key is the mosque id, city or state name; empty for national.
	Key string
}
