package payments

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"masjid-collection/internal/domain"
)

// UPILink builds the upi://pay deep link a household opens in its payment app.
func UPILink(m domain.Mosque, h domain.Household, year int, months []int, amount float64) (string, error) {
	if strings.TrimSpace(m.UPIID) == "" {
		return "", fmt.Errorf("%w: mosque has no UPI id", domain.ErrInvalidInput)
	}
	if len(months) == 0 {
		return "", ErrEmptySelection
	}
	names := make([]string, len(months))
	for i, mo := range months {
		if !validMonth(mo) {
			return "", fmt.Errorf("%w: %d", domain.ErrInvalidMonth, mo)
		}
		names[i] = MonthName(mo)[:3]
	}
	note := fmt.Sprintf("House %s %s %d", h.HouseNumber, strings.Join(names, ","), year)

	q := url.Values{}
	q.Set("pa", m.UPIID)
	q.Set("pn", m.Name)
	q.Set("am", strconv.FormatFloat(amount, 'f', 2, 64))
	q.Set("cu", "INR")
	q.Set("tn", note)
	return "upi://pay?" + q.Encode(), nil
}
