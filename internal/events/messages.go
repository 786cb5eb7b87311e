package events

import (
	"encoding/json"
	"fmt"
	"time"

	"masjid-collection/internal/domain"

	"github.com/google/uuid"
)

type Type string

const (
	PaymentSubmitted Type = "payment.submitted"
	PaymentVerified  Type = "payment.verified"
)

// Event is the JSON body of every message on the exchange.
type Event struct {
	Type           Type          `json:"type"`
	PaymentGroupID *uuid.UUID    `json:"payment_group_id,omitempty"`
	PaymentID      *uuid.UUID    `json:"payment_id,omitempty"`
	HouseholdID    uuid.UUID     `json:"household_id"`
	MosqueID       uuid.UUID     `json:"mosque_id"`
	Months         []int         `json:"months"`
	Year           int           `json:"year"`
	Amount         float64       `json:"amount"`
	Status         domain.Status `json:"status,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

func Submitted(h domain.Household, groupID uuid.UUID, year int, months []int, amount float64, at time.Time) Event {
	return Event{
		Type:           PaymentSubmitted,
		PaymentGroupID: &groupID,
		HouseholdID:    h.ID,
		MosqueID:       h.MosqueID,
		Months:         months,
		Year:           year,
		Amount:         amount,
		Status:         domain.StatusPendingVerification,
		Timestamp:      at,
	}
}

func Verified(h domain.Household, p domain.Payment, at time.Time) Event {
	id := p.ID
	return Event{
		Type:           PaymentVerified,
		PaymentGroupID: p.PaymentGroupID,
		PaymentID:      &id,
		HouseholdID:    h.ID,
		MosqueID:       h.MosqueID,
		Months:         []int{p.Month},
		Year:           p.Year,
		Amount:         p.Amount,
		Status:         p.Status,
		Timestamp:      at,
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	switch e.Type {
	case PaymentSubmitted, PaymentVerified:
	default:
		return Event{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	return e, nil
}
