package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"masjid-collection/internal/blob"
	"masjid-collection/internal/domain"
	"masjid-collection/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptySelection    = errors.New("no months selected")
	ErrNoScreenshot      = errors.New("payment screenshot is required")
	ErrBelowMinimum      = errors.New("amount is below the mosque minimum")
	ErrSelectionStale    = errors.New("selected month is no longer payable")
	ErrInvalidTransition = errors.New("invalid submission step")
	ErrUpload            = errors.New("screenshot upload failed")
)

// Mode decides how the group and its payments are committed.
type Mode string

const (
	// ModeAtomic commits the group and every month in one storage transaction.
	ModeAtomic Mode = "atomic"
	// ModeBestEffort creates the group, then writes each month concurrently.
	// A failed month leaves the others committed.
	ModeBestEffort Mode = "best_effort"
)

func (m Mode) IsValid() bool { return m == ModeAtomic || m == ModeBestEffort }

type State int

const (
	StateIdle State = iota
	StateAwaitingPaymentConfirmation
	StateAwaitingScreenshot
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPaymentConfirmation:
		return "awaiting_payment_confirmation"
	case StateAwaitingScreenshot:
		return "awaiting_screenshot"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// BatchError is returned in best-effort mode when some month writes failed.
// Committed lists the months that were written anyway.
type BatchError struct {
	Group     domain.PaymentGroup
	Committed []int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("payment batch partially written (committed months %v): %v", e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

type Deps struct {
	Payments storage.PaymentStorage
	Blobs    blob.Store
	Mode     Mode
	// Now defaults to time.Now.
	Now func() time.Time
}

// Receipt describes a committed submission.
type Receipt struct {
	Group  domain.PaymentGroup `json:"group"`
	Year   int                 `json:"year"`
	Months []int               `json:"months"`
	Amount float64             `json:"amount"`
}

// Submission is one household's payment dialog for one year. It is not safe
// for concurrent use.
type Submission struct {
	deps      Deps
	userID    uuid.UUID
	household domain.Household
	mosque    domain.Mosque
	year      int
	method    string

	state      State
	rows       []domain.Payment
	selection  *Selection
	screenshot *blob.Object
	err        error
}

func NewSubmission(deps Deps, userID uuid.UUID, h domain.Household, m domain.Mosque, year int) *Submission {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if !deps.Mode.IsValid() {
		deps.Mode = ModeAtomic
	}
	return &Submission{
		deps:      deps,
		userID:    userID,
		household: h,
		mosque:    m,
		year:      year,
		method:    "upi",
		selection: NewSelection(),
	}
}

// Load replaces the payment snapshot. On error the previous snapshot stays.
func (s *Submission) Load(ctx context.Context) error {
	rows, err := s.deps.Payments.ListPayments(ctx, s.household.ID, s.year)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	s.rows = rows
	return nil
}

func (s *Submission) Rows() []domain.Payment { return slices.Clone(s.rows) }
func (s *Submission) State() State           { return s.state }
func (s *Submission) Months() []int          { return s.selection.Months() }
func (s *Submission) Err() error             { return s.err }
func (s *Submission) AmountDue() float64 {
	return AmountDue(s.selection, s.household.AnnualAmount)
}

func (s *Submission) SetPaymentMethod(method string) {
	if method != "" {
		s.method = method
	}
}

// Toggle selects or deselects month using the status resolved from the
// current snapshot.
func (s *Submission) Toggle(month int) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: toggle in %s", ErrInvalidTransition, s.state)
	}
	if !validMonth(month) {
		return domain.ErrInvalidMonth
	}
	s.selection.Toggle(month, ResolveStatus(s.rows, month))
	return nil
}

// Open shows the payment dialog.
func (s *Submission) Open() error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: open in %s", ErrInvalidTransition, s.state)
	}
	if s.selection.Len() == 0 {
		return ErrEmptySelection
	}
	s.state = StateAwaitingPaymentConfirmation
	return nil
}

// ConfirmPaid records that the user says the external payment is done.
func (s *Submission) ConfirmPaid() error {
	if s.state != StateAwaitingPaymentConfirmation {
		return fmt.Errorf("%w: confirm in %s", ErrInvalidTransition, s.state)
	}
	s.state = StateAwaitingScreenshot
	return nil
}

func (s *Submission) Attach(obj blob.Object) error {
	if s.state != StateAwaitingScreenshot {
		return fmt.Errorf("%w: attach in %s", ErrInvalidTransition, s.state)
	}
	if len(obj.Data) == 0 {
		return ErrNoScreenshot
	}
	s.screenshot = &obj
	return nil
}

// Cancel closes the dialog. The selection is kept.
func (s *Submission) Cancel() error {
	if s.state == StateSubmitting {
		return fmt.Errorf("%w: cannot cancel while submitting", ErrInvalidTransition)
	}
	s.state = StateIdle
	s.screenshot = nil
	s.err = nil
	return nil
}

// Submit commits the selection. Validation errors leave the state unchanged;
// any later error moves the submission to StateFailed.
func (s *Submission) Submit(ctx context.Context) (Receipt, error) {
	if s.state != StateAwaitingScreenshot {
		return Receipt{}, fmt.Errorf("%w: submit in %s", ErrInvalidTransition, s.state)
	}
	if s.selection.Len() == 0 {
		return Receipt{}, ErrEmptySelection
	}
	if s.screenshot == nil {
		return Receipt{}, ErrNoScreenshot
	}
	amount := s.AmountDue()
	if s.mosque.MinimumAmount > 0 && amount < s.mosque.MinimumAmount {
		return Receipt{}, fmt.Errorf("%w: %.2f < %.2f", ErrBelowMinimum, amount, s.mosque.MinimumAmount)
	}

	s.state = StateSubmitting
	receipt, err := s.commit(ctx, amount)
	if err != nil {
		s.state = StateFailed
		s.err = err
		return Receipt{}, err
	}

	s.state = StateSuccess
	s.selection.Clear()
	s.screenshot = nil
	if err := s.Load(ctx); err != nil {
		slog.WarnContext(ctx, "Reload after submission failed", "household_id", s.household.ID, "error", err)
	}
	return receipt, nil
}

func (s *Submission) commit(ctx context.Context, amount float64) (Receipt, error) {
	months := s.selection.Months()
	now := s.deps.Now()

	// 1. перечитываем выбранные месяцы: кто-то мог оплатить их параллельно
	fresh, err := s.deps.Payments.PaymentsForMonths(ctx, s.household.ID, s.year, months)
	if err != nil {
		return Receipt{}, fmt.Errorf("reload selected months: %w", err)
	}
	for _, m := range months {
		if st := ResolveStatus(fresh, m); st.Locked() {
			return Receipt{}, fmt.Errorf("%w: %s %d is %s", ErrSelectionStale, MonthName(m), s.year, st)
		}
	}

	// 2. скриншот
	key := fmt.Sprintf("payment-screenshots/%s/%d%s", s.userID, now.UnixMilli(), s.screenshot.Ext)
	url, err := s.deps.Blobs.Put(ctx, key, s.screenshot.ContentType, s.screenshot.Data)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	// 3-4. группа + строки по месяцам
	group := domain.PaymentGroup{
		ID:            uuid.New(),
		HouseholdID:   s.household.ID,
		TotalAmount:   amount,
		ScreenshotURL: url,
		Status:        domain.StatusPendingVerification,
		CreatedAt:     now,
	}
	writes := s.planWrites(fresh, months, group.ID, url, now)

	switch s.deps.Mode {
	case ModeBestEffort:
		group, err = s.commitBestEffort(ctx, group, writes)
	default:
		group, err = s.deps.Payments.SubmitPaymentGroup(ctx, group, writes)
	}
	if err != nil {
		return Receipt{}, err
	}

	slog.InfoContext(ctx, "Payment group submitted",
		"group_id", group.ID,
		"household_id", s.household.ID,
		"year", s.year,
		"months", months,
		"amount", amount,
		"mode", s.deps.Mode)

	return Receipt{Group: group, Year: s.year, Months: months, Amount: amount}, nil
}

func (s *Submission) planWrites(fresh []domain.Payment, months []int, groupID uuid.UUID, receiptURL string, now time.Time) []storage.PaymentWrite {
	monthly := MonthlyAmount(s.household.AnnualAmount)
	writes := make([]storage.PaymentWrite, 0, len(months))
	for _, m := range months {
		p := domain.Payment{
			ID:          uuid.New(),
			HouseholdID: s.household.ID,
			Month:       m,
			Year:        s.year,
			CreatedAt:   now,
		}
		resubmit := false
		if prev := find(fresh, domain.YearMonth{Year: s.year, Month: m}); prev != nil && prev.Status == domain.StatusRejected {
			p = *prev
			resubmit = true
		}
		gid := groupID
		p.Amount = monthly
		p.PaymentDate = now
		p.PaymentMethod = s.method
		p.Status = domain.StatusPendingVerification
		p.RejectionReason = ""
		p.ReceiptURL = receiptURL
		p.PaymentGroupID = &gid
		writes = append(writes, storage.PaymentWrite{Payment: p, Resubmit: resubmit})
	}
	return writes
}

func (s *Submission) commitBestEffort(ctx context.Context, group domain.PaymentGroup, writes []storage.PaymentWrite) (domain.PaymentGroup, error) {
	group, err := s.deps.Payments.CreatePaymentGroup(ctx, group)
	if err != nil {
		return domain.PaymentGroup{}, fmt.Errorf("create payment group: %w", err)
	}

	var (
		eg        errgroup.Group
		mu        sync.Mutex
		committed []int
	)
	for _, w := range writes {
		eg.Go(func() error {
			if err := s.deps.Payments.WritePayment(ctx, w); err != nil {
				return fmt.Errorf("%s %d: %w", MonthName(w.Payment.Month), w.Payment.Year, err)
			}
			mu.Lock()
			committed = append(committed, w.Payment.Month)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		slices.Sort(committed)
		slog.ErrorContext(ctx, "Payment batch partially written",
			"group_id", group.ID, "committed", committed, "error", err)
		return domain.PaymentGroup{}, &BatchError{Group: group, Committed: committed, Err: err}
	}
	return group, nil
}
