package payments

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"masjid-collection/internal/domain"
)

func TestUPILink(t *testing.T) {
	m := domain.Mosque{Name: "Masjid-e-Noor", UPIID: "noor@upi"}
	h := domain.Household{HouseNumber: "12-A"}

	link, err := UPILink(m, h, 2025, []int{1, 2}, 1000.0/6)
	if err != nil {
		t.Fatalf("UPILink: %v", err)
	}
	if !strings.HasPrefix(link, "upi://pay?") {
		t.Fatalf("link = %s", link)
	}
	q, err := url.ParseQuery(strings.TrimPrefix(link, "upi://pay?"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]string{
		"pa": "noor@upi",
		"pn": "Masjid-e-Noor",
		"am": "166.67",
		"cu": "INR",
		"tn": "House 12-A Jan,Feb 2025",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, q.Get(k), v)
		}
	}
}

func TestUPILinkErrors(t *testing.T) {
	if _, err := UPILink(domain.Mosque{}, domain.Household{}, 2025, []int{1}, 10); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("missing upi id: %v", err)
	}
	if _, err := UPILink(domain.Mosque{UPIID: "x@upi"}, domain.Household{}, 2025, nil, 0); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("no months: %v", err)
	}
	for _, months := range [][]int{{13}, {0}, {1, -2}} {
		if _, err := UPILink(domain.Mosque{UPIID: "x@upi"}, domain.Household{}, 2025, months, 10); !errors.Is(err, domain.ErrInvalidMonth) {
			t.Fatalf("months %v: %v", months, err)
		}
	}
}
