package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"masjid-collection/internal/domain"
	"masjid-collection/internal/events"
	"masjid-collection/internal/payments"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
)

const helpText = "🕌 *Masjid collection bot*\n\n" +
	"Payment submissions and verifications are posted here.\n\n" +
	"Commands:\n" +
	"`/status <household_id> [year]` - monthly statuses of a household"

var statusIcons = map[domain.Status]string{
	domain.StatusPaid:                "✅",
	domain.StatusPendingVerification: "⏳",
	domain.StatusRejected:            "❌",
	domain.StatusUnpaid:              "▫️",
}

func monthList(months []int) string {
	names := make([]string, 0, len(months))
	for _, m := range months {
		names = append(names, payments.MonthName(m))
	}
	return strings.Join(names, ", ")
}

// formatEvent renders an event for the admin chat.
func formatEvent(e events.Event) string {
	switch e.Type {
	case events.PaymentSubmitted:
		return fmt.Sprintf("📥 *New payment submitted*\nHousehold: `%s`\nMonths: %s %d\nAmount: %s\nWaiting for verification",
			e.HouseholdID, monthList(e.Months), e.Year, payments.FormatINR(e.Amount))
	case events.PaymentVerified:
		verb := "approved"
		if e.Status == domain.StatusRejected {
			verb = "rejected"
		}
		return fmt.Sprintf("%s *Payment %s*\nHousehold: `%s`\nMonth: %s %d\nAmount: %s",
			statusIcons[e.Status], verb, e.HouseholdID, monthList(e.Months), e.Year, payments.FormatINR(e.Amount))
	}
	return fmt.Sprintf("Event %s for household `%s`", e.Type, e.HouseholdID)
}

// parseStatusCommand reads "/status <household_id> [year]".
func parseStatusCommand(text string, defaultYear int) (uuid.UUID, int, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 || len(fields) > 3 {
		return uuid.Nil, 0, fmt.Errorf("usage: /status <household_id> [year]")
	}
	id, err := uuid.Parse(fields[1])
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("invalid household id %q", fields[1])
	}
	year := defaultYear
	if len(fields) == 3 {
		year, err = strconv.Atoi(fields[2])
		if err != nil || year < 2000 || year > 2100 {
			return uuid.Nil, 0, fmt.Errorf("invalid year %q", fields[2])
		}
	}
	return id, year, nil
}

func formatStatuses(h domain.Household, year int, rows []domain.Payment) string {
	lines := []string{fmt.Sprintf("🏠 *House %s* (%s), %d", h.HouseNumber, h.HeadOfHouse, year)}
	paid := 0.0
	for _, ms := range payments.Statuses(rows, year, payments.MonthsInRange(1, 12)) {
		// "_" открывает курсив в Markdown
		label := strings.ReplaceAll(string(ms.Status), "_", " ")
		lines = append(lines, fmt.Sprintf("%s %s: %s", statusIcons[ms.Status], ms.Name, label))
		if ms.Status == domain.StatusPaid {
			paid += ms.Payment.Amount
		}
	}
	lines = append(lines, fmt.Sprintf("\nPaid: %s of %s", payments.FormatINR(paid), payments.FormatINR(h.AnnualAmount)))
	return strings.Join(lines, "\n")
}

// fixEncoding recovers commands sent by clients that still use windows-1251.
func fixEncoding(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	fixed, err := charmap.Windows1251.NewDecoder().String(s)
	if err == nil && utf8.ValidString(fixed) {
		return fixed
	}
	return strings.ToValidUTF8(s, "")
}
