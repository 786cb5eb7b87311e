package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"masjid-collection/internal/domain"

	"github.com/google/uuid"
)

func TestSubmittedJSON(t *testing.T) {
	h := domain.Household{ID: uuid.New(), MosqueID: uuid.New()}
	group := uuid.New()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	body, err := Submitted(h, group, 2025, []int{1, 2}, 1000, at).ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"type":"payment.submitted"`, `"months":[1,2]`, `"payment_group_id":"` + group.String(), `"amount":1000`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("missing %s in %s", want, body)
		}
	}

	e, err := FromJSON(body)
	if err != nil {
		t.Fatal(err)
	}
	if e.HouseholdID != h.ID || e.MosqueID != h.MosqueID || !e.Timestamp.Equal(at) || *e.PaymentGroupID != group {
		t.Fatalf("decoded = %+v", e)
	}
}

func TestFromJSONRejectsUnknownType(t *testing.T) {
	if _, err := FromJSON([]byte(`{"type":"payment.deleted"}`)); err == nil {
		t.Fatal("expected error")
	}
	if _, err := FromJSON([]byte(`{`)); err == nil {
		t.Fatal("expected error for bad json")
	}
}

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestPublishIsNilSafe(t *testing.T) {
	Publish(context.Background(), nil, Event{Type: PaymentSubmitted})

	r := &recorder{err: errors.New("broker down")}
	Publish(context.Background(), r, Verified(domain.Household{}, domain.Payment{Month: 4, Year: 2025, Status: domain.StatusPaid}, time.Now()))
	if len(r.got) != 1 || r.got[0].Months[0] != 4 || r.got[0].Status != domain.StatusPaid {
		t.Fatalf("got %+v", r.got)
	}
}
