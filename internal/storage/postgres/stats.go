package postgres

import (
	"context"
	"fmt"

	"masjid-collection/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// scopeFilter returns a condition on the mosques alias m, using $1 when the
// scope needs a parameter.
func scopeFilter(scope domain.StatsScope) (string, []any, error) {
	switch scope.Level {
	case domain.LevelMosque:
		id, err := uuid.Parse(scope.Key)
		if err != nil {
			return "", nil, fmt.Errorf("%w: mosque key must be a UUID", domain.ErrInvalidInput)
		}
		return "m.id = $1", []any{id}, nil
	case domain.LevelCity:
		return "lower(m.city) = lower($1)", []any{scope.Key}, nil
	case domain.LevelState:
		return "lower(m.state) = lower($1)", []any{scope.Key}, nil
	case domain.LevelNational:
		return "TRUE", nil, nil
	}
	return "", nil, fmt.Errorf("%w: unknown stats level %q", domain.ErrInvalidInput, scope.Level)
}

// Sums are computed as numeric and read as text so decimal keeps every digit.
func (s *Storage) CollectionStats(ctx context.Context, scope domain.StatsScope, year int) (domain.CollectionStats, error) {
	st := domain.CollectionStats{Level: scope.Level, Key: scope.Key, Year: year}
	where, args, err := scopeFilter(scope)
	if err != nil {
		return st, err
	}

	var expected string
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT m.id), COUNT(h.id), COALESCE(SUM(h.annual_amount::numeric), 0)::text
		FROM mosques m
		LEFT JOIN households h ON h.mosque_id = m.id
		WHERE `+where, args...).Scan(&st.Mosques, &st.Households, &expected)
	if err != nil {
		return st, mapErr("count households", err)
	}
	if st.ExpectedAmount, err = decimal.NewFromString(expected); err != nil {
		return st, fmt.Errorf("parse expected amount: %w", err)
	}

	yearArg := len(args) + 1
	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT p.status, p.month, COUNT(*), COALESCE(SUM(p.amount::numeric), 0)::text
		FROM payments p
		JOIN households h ON h.id = p.household_id
		JOIN mosques m ON m.id = h.mosque_id
		WHERE p.year = $%d AND %s
		GROUP BY p.status, p.month
	`, yearArg, where), append(args, year)...)
	if err != nil {
		return st, mapErr("aggregate payments", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status domain.Status
			month  int
			count  int
			sumStr string
		)
		if err := rows.Scan(&status, &month, &count, &sumStr); err != nil {
			return st, fmt.Errorf("scan aggregate: %w", err)
		}
		sum, err := decimal.NewFromString(sumStr)
		if err != nil {
			return st, fmt.Errorf("parse sum: %w", err)
		}
		switch status {
		case domain.StatusPaid:
			st.Collected = st.Collected.Add(sum)
			if month >= 1 && month <= 12 {
				st.PaidByMonth[month-1] += count
			}
		case domain.StatusPendingVerification:
			st.Pending = st.Pending.Add(sum)
		case domain.StatusRejected:
			st.RejectedCount += count
		}
	}
	return st, rows.Err()
}
