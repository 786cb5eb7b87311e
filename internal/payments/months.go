package payments

import (
	"time"

	"masjid-collection/internal/domain"
)

// MonthsInRange returns from..to inclusive. It never wraps around a year:
// from > to or bounds outside 1..12 give an empty result.
func MonthsInRange(from, to int) []int {
	if from < 1 || to > 12 || from > to {
		return []int{}
	}
	out := make([]int, 0, to-from+1)
	for m := from; m <= to; m++ {
		out = append(out, m)
	}
	return out
}

// ApplyStatusFilter keeps the months whose resolved status matches filter.
func ApplyStatusFilter(months []int, rows []domain.Payment, filter domain.StatusFilter) []int {
	if filter == domain.FilterAll {
		return months
	}
	out := make([]int, 0, len(months))
	for _, m := range months {
		if filter.Matches(ResolveStatus(rows, m)) {
			out = append(out, m)
		}
	}
	return out
}

// WalkMonths lists every calendar month from start to end inclusive.
func WalkMonths(start, end domain.YearMonth) []domain.YearMonth {
	var out []domain.YearMonth
	if start.Month < 1 || start.Month > 12 || end.Month < 1 || end.Month > 12 {
		return out
	}
	for ym := start; !end.Before(ym); ym = ym.Next() {
		out = append(out, ym)
	}
	return out
}

// MonthName returns the English month name, "" for an invalid month.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}

func validMonth(m int) bool { return m >= 1 && m <= 12 }
