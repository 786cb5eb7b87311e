package payments

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"masjid-collection/internal/domain"

	"github.com/Rhymond/go-money"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type SortKey string

const (
	SortMonth  SortKey = "month"
	SortDate   SortKey = "date"
	SortAmount SortKey = "amount"
)

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortDate, nil
	case SortMonth, SortDate, SortAmount:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidInput, s)
}

type HistoryQuery struct {
	Status domain.StatusFilter
	Sort   SortKey
	// Desc reverses the natural order (month and amount ascend, date descends).
	Desc bool
}

// History filters and sorts stored payment rows. Unpaid months have no row,
// so an "unpaid" filter always yields nothing.
func History(rows []domain.Payment, q HistoryQuery) []domain.Payment {
	out := make([]domain.Payment, 0, len(rows))
	for _, p := range rows {
		if q.Status == "" || q.Status.Matches(p.Status) {
			out = append(out, p)
		}
	}

	var cmp func(a, b domain.Payment) int
	switch q.Sort {
	case SortMonth:
		cmp = func(a, b domain.Payment) int {
			if a.Year != b.Year {
				return a.Year - b.Year
			}
			return a.Month - b.Month
		}
	case SortAmount:
		cmp = func(a, b domain.Payment) int {
			switch {
			case a.Amount < b.Amount:
				return -1
			case a.Amount > b.Amount:
				return 1
			}
			return 0
		}
	default:
		cmp = func(a, b domain.Payment) int { return b.PaymentDate.Compare(a.PaymentDate) }
	}
	if q.Desc {
		asc := cmp
		cmp = func(a, b domain.Payment) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

var csvHeader = []string{"Date", "Month", "Year", "Amount", "Payment Method", "Transaction ID", "Status"}

// WriteCSV renders payment history for download.
func WriteCSV(w io.Writer, rows []domain.Payment) error {
	upper := cases.Upper(language.Und)
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range rows {
		date := ""
		if !p.PaymentDate.IsZero() {
			date = p.PaymentDate.Format("02/01/2006")
		}
		txID := p.TransactionID
		if txID == "" {
			txID = "N/A"
		}
		record := []string{
			date,
			MonthName(p.Month),
			strconv.Itoa(p.Year),
			csvAmount(p.Amount),
			upper.String(p.PaymentMethod),
			txID,
			upper.String(string(p.Status)),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func CSVFilename(year int) string {
	return fmt.Sprintf("payment-history-%d.csv", year)
}

// без разделителя тысяч, чтобы поле не попадало в кавычки
var csvINR = money.NewFormatter(2, ".", "", "₹", "$1")

func paise(amount float64) int64 { return int64(math.Round(amount * 100)) }

// csvAmount renders ₹12000.00 style amounts for the export.
func csvAmount(amount float64) string {
	return csvINR.Format(paise(amount))
}

// FormatINR renders an amount as rupees with two decimals, e.g. ₹750.50.
func FormatINR(amount float64) string {
	return money.New(paise(amount), money.INR).Display()
}
