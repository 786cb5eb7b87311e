package payments

import (
	"fmt"

	"masjid-collection/internal/domain"
)

// MaxReportMonths caps the window of a household report (ten years).
const MaxReportMonths = 120

// CheckReportWindow rejects windows longer than MaxReportMonths. An inverted
// window is allowed and yields an empty report.
func CheckReportWindow(from, to domain.YearMonth) error {
	span := (to.Year*12 + to.Month) - (from.Year*12 + from.Month) + 1
	if span > MaxReportMonths {
		return fmt.Errorf("%w: report window of %d months exceeds %d", domain.ErrInvalidInput, span, MaxReportMonths)
	}
	return nil
}

// HouseholdReport is the admin view of a household over a window of months
// that may cross year boundaries.
type HouseholdReport struct {
	Household     domain.Household `json:"household"`
	From          domain.YearMonth `json:"from"`
	To            domain.YearMonth `json:"to"`
	Months        []MonthStatus    `json:"months"`
	Paid          int              `json:"paid"`
	Pending       int              `json:"pending"`
	Rejected      int              `json:"rejected"`
	Unpaid        int              `json:"unpaid"`
	PaidAmount    float64          `json:"paid_amount"`
	ExpectedTotal float64          `json:"expected_total"`
}

func BuildReport(h domain.Household, rows []domain.Payment, from, to domain.YearMonth) HouseholdReport {
	r := HouseholdReport{Household: h, From: from, To: to, Months: []MonthStatus{}}
	monthly := MonthlyAmount(h.AnnualAmount)
	for _, ym := range WalkMonths(from, to) {
		ms := MonthStatus{Year: ym.Year, Month: ym.Month, Name: MonthName(ym.Month), Status: domain.StatusUnpaid}
		if p := find(rows, ym); p != nil {
			ms.Status = p.Status
			ms.Payment = p
		}
		switch ms.Status {
		case domain.StatusPaid:
			r.Paid++
			r.PaidAmount += ms.Payment.Amount
		case domain.StatusPendingVerification:
			r.Pending++
		case domain.StatusRejected:
			r.Rejected++
		case domain.StatusUnpaid:
			r.Unpaid++
		}
		r.ExpectedTotal += monthly
		r.Months = append(r.Months, ms)
	}
	return r
}
