package payments

import (
	"slices"

	"masjid-collection/internal/domain"
)

// Selection is the sorted set of months a household chose to pay.
type Selection struct {
	months []int
}

func NewSelection() *Selection { return &Selection{} }

// Toggle adds or removes month. Months that are paid or waiting for
// verification can never be selected, whatever the current membership.
// The caller must pass a freshly resolved status.
func (s *Selection) Toggle(month int, status domain.Status) {
	if status.Locked() || !validMonth(month) {
		return
	}
	i, found := slices.BinarySearch(s.months, month)
	if found {
		s.months = slices.Delete(s.months, i, i+1)
		return
	}
	s.months = slices.Insert(s.months, i, month)
}

func (s *Selection) Contains(month int) bool {
	_, found := slices.BinarySearch(s.months, month)
	return found
}

// Months returns a copy, ascending.
func (s *Selection) Months() []int { return slices.Clone(s.months) }

func (s *Selection) Len() int { return len(s.months) }

func (s *Selection) Clear() { s.months = nil }

// MonthlyAmount is the yearly due split in twelve, without rounding.
func MonthlyAmount(annual float64) float64 { return annual / 12 }

// AmountDue is what the selected months cost.
func AmountDue(s *Selection, annual float64) float64 {
	return float64(s.Len()) * MonthlyAmount(annual)
}
