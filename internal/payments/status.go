// Package payments is the household payment status engine: it derives month
// statuses from a flat list of payment rows, tracks which unpaid months a
// household selected, and turns a selection plus a receipt screenshot into a
// payment group.
package payments

import "masjid-collection/internal/domain"

// ResolveStatus returns the status of month among rows already fetched for a
// single household and year. A missing row means unpaid. If several rows match
// (which the unique index forbids) the first one wins.
func ResolveStatus(rows []domain.Payment, month int) domain.Status {
	for _, p := range rows {
		if p.Month == month {
			return p.Status
		}
	}
	return domain.StatusUnpaid
}

// ResolveStatusAt is ResolveStatus for rows spanning several years.
func ResolveStatusAt(rows []domain.Payment, ym domain.YearMonth) domain.Status {
	if p := find(rows, ym); p != nil {
		return p.Status
	}
	return domain.StatusUnpaid
}

func find(rows []domain.Payment, ym domain.YearMonth) *domain.Payment {
	for i := range rows {
		if rows[i].Month == ym.Month && rows[i].Year == ym.Year {
			return &rows[i]
		}
	}
	return nil
}

// MonthStatus is one line of a household dashboard.
type MonthStatus struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Name    string          `json:"name"`
	Status  domain.Status   `json:"status"`
	Payment *domain.Payment `json:"payment,omitempty"`
}

// Statuses resolves every month of months for year.
func Statuses(rows []domain.Payment, year int, months []int) []MonthStatus {
	out := make([]MonthStatus, 0, len(months))
	for _, m := range months {
		ms := MonthStatus{Year: year, Month: m, Name: MonthName(m), Status: domain.StatusUnpaid}
		if p := find(rows, domain.YearMonth{Year: year, Month: m}); p != nil {
			ms.Status = p.Status
			ms.Payment = p
		}
		out = append(out, ms)
	}
	return out
}
