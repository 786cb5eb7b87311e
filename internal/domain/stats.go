// internal/domain/stats.go
package domain

import "github.com/shopspring/decimal"

// CollectionStats aggregates one year of payments over a scope.
type CollectionStats struct {
	Level          StatsLevel      `json:"level"`
	Key            string          `json:"key,omitempty"`
	Year           int             `json:"year"`
	Mosques        int             `json:"mosques"`
	Households     int             `json:"households"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	Collected      decimal.Decimal `json:"collected"`
	Pending        decimal.Decimal `json:"pending"`
	RejectedCount  int             `json:"rejected_count"`
	// PaidByMonth[i] is the number of paid payments for month i+1.
	PaidByMonth [12]int `json:"paid_by_month"`
}

// Outstanding is what is still expected after paid and pending amounts.
func (s CollectionStats) Outstanding() decimal.Decimal {
	out := s.ExpectedAmount.Sub(s.Collected).Sub(s.Pending)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
