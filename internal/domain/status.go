// internal/domain/status.go
package domain

import "fmt"

// Status of a monthly payment. StatusUnpaid is never stored: it is what a
// missing row means.
type Status string

const (
	StatusUnpaid              Status = "unpaid"
	StatusPendingVerification Status = "pending_verification"
	StatusPaid                Status = "paid"
	StatusRejected            Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUnpaid, StatusPendingVerification, StatusPaid, StatusRejected:
		return true
	}
	return false
}

// Locked reports whether a month in this status can no longer be selected for payment.
func (s Status) Locked() bool {
	return s == StatusPaid || s == StatusPendingVerification
}

// StatusFilter is either "all" or a concrete Status.
type StatusFilter string

const FilterAll StatusFilter = "all"

func ParseStatusFilter(s string) (StatusFilter, error) {
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	if !Status(s).IsValid() {
		return "", fmt.Errorf("%w: unknown status filter %q", ErrInvalidInput, s)
	}
	return StatusFilter(s), nil
}

// Matches reports whether a month with the given status passes the filter.
func (f StatusFilter) Matches(s Status) bool {
	return f == FilterAll || Status(f) == s
}
