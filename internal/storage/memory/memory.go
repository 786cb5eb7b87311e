// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"masjid-collection/internal/domain"
	"masjid-collection/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store keeps everything in process memory. It backs DATA_BACKEND=memory and
// the tests.
type Store struct {
	mu            sync.Mutex
	mosques       map[uuid.UUID]domain.Mosque
	users         map[uuid.UUID]domain.User
	households    map[uuid.UUID]domain.Household
	payments      map[uuid.UUID]domain.Payment
	groups        map[uuid.UUID]domain.PaymentGroup
	registrations map[uuid.UUID]domain.HouseholdRegistration
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		mosques:       map[uuid.UUID]domain.Mosque{},
		users:         map[uuid.UUID]domain.User{},
		households:    map[uuid.UUID]domain.Household{},
		payments:      map[uuid.UUID]domain.Payment{},
		groups:        map[uuid.UUID]domain.PaymentGroup{},
		registrations: map[uuid.UUID]domain.HouseholdRegistration{},
	}
}

func (s *Store) Close() error { return nil }

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// === MosqueStorage ===

func (s *Store) CreateMosque(_ context.Context, m domain.Mosque) (domain.Mosque, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = newID(m.ID)
	s.mosques[m.ID] = m
	return m, nil
}

func (s *Store) GetMosque(_ context.Context, id uuid.UUID) (*domain.Mosque, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mosques[id]
	if !ok {
		return nil, fmt.Errorf("mosque %s: %w", id, domain.ErrNotFound)
	}
	return &m, nil
}

// === UserStorage ===

func (s *Store) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUserLocked(u)
}

func (s *Store) createUserLocked(u domain.User) (domain.User, error) {
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.User{}, fmt.Errorf("user %q: %w", u.Email, domain.ErrConflict)
		}
	}
	u.ID = newID(u.ID)
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, domain.ErrNotFound)
}

// === HouseholdStorage ===

func (s *Store) CreateHousehold(_ context.Context, h domain.Household) (domain.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createHouseholdLocked(h)
}

func (s *Store) createHouseholdLocked(h domain.Household) (domain.Household, error) {
	for _, existing := range s.households {
		if existing.MosqueID == h.MosqueID && existing.HouseNumber == h.HouseNumber {
			return domain.Household{}, fmt.Errorf("house %q: %w", h.HouseNumber, domain.ErrConflict)
		}
	}
	h.ID = newID(h.ID)
	s.households[h.ID] = h
	return h, nil
}

func (s *Store) GetHousehold(_ context.Context, id uuid.UUID) (*domain.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.households[id]
	if !ok {
		return nil, fmt.Errorf("household %s: %w", id, domain.ErrNotFound)
	}
	return &h, nil
}

func (s *Store) ListHouseholds(_ context.Context, mosqueID uuid.UUID) ([]domain.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Household{}
	for _, h := range s.households {
		if h.MosqueID == mosqueID {
			out = append(out, h)
		}
	}
	slices.SortFunc(out, func(a, b domain.Household) int { return strings.Compare(a.HouseNumber, b.HouseNumber) })
	return out, nil
}

func (s *Store) UpdateHousehold(_ context.Context, h domain.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.households[h.ID]
	if !ok {
		return fmt.Errorf("household %s: %w", h.ID, domain.ErrNotFound)
	}
	h.MosqueID = old.MosqueID
	s.households[h.ID] = h
	return nil
}

func (s *Store) DeleteHousehold(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.households[id]; !ok {
		return fmt.Errorf("household %s: %w", id, domain.ErrNotFound)
	}
	delete(s.households, id)
	for pid, p := range s.payments {
		if p.HouseholdID == id {
			delete(s.payments, pid)
		}
	}
	for uid, u := range s.users {
		if u.HouseholdID != nil && *u.HouseholdID == id {
			delete(s.users, uid)
		}
	}
	return nil
}

// === PaymentStorage ===

func (s *Store) selectPayments(keep func(domain.Payment) bool) []domain.Payment {
	out := []domain.Payment{}
	for _, p := range s.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Payment) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Month - b.Month
	})
	return out
}

func (s *Store) ListPayments(_ context.Context, householdID uuid.UUID, year int) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectPayments(func(p domain.Payment) bool {
		return p.HouseholdID == householdID && p.Year == year
	}), nil
}

func (s *Store) ListPaymentsBetween(_ context.Context, householdID uuid.UUID, from, to domain.YearMonth) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectPayments(func(p domain.Payment) bool {
		ym := domain.YearMonth{Year: p.Year, Month: p.Month}
		return p.HouseholdID == householdID && !ym.Before(from) && !to.Before(ym)
	}), nil
}

func (s *Store) PaymentsForMonths(_ context.Context, householdID uuid.UUID, year int, months []int) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectPayments(func(p domain.Payment) bool {
		return p.HouseholdID == householdID && p.Year == year && slices.Contains(months, p.Month)
	}), nil
}

func (s *Store) GetPayment(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) monthTakenLocked(p domain.Payment) bool {
	for _, existing := range s.payments {
		if existing.HouseholdID == p.HouseholdID && existing.Year == p.Year && existing.Month == p.Month {
			return true
		}
	}
	return false
}

func (s *Store) InsertPayment(_ context.Context, p domain.Payment) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monthTakenLocked(p) {
		return domain.Payment{}, fmt.Errorf("payment %d-%02d: %w", p.Year, p.Month, domain.ErrConflict)
	}
	p.ID = newID(p.ID)
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) CreatePaymentGroup(_ context.Context, g domain.PaymentGroup) (domain.PaymentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = newID(g.ID)
	s.groups[g.ID] = g
	return g, nil
}

// checkWriteLocked reports whether w can be applied to the current state.
func (s *Store) checkWriteLocked(w storage.PaymentWrite) error {
	p := w.Payment
	if !w.Resubmit {
		if s.monthTakenLocked(p) {
			return fmt.Errorf("payment %d-%02d: %w", p.Year, p.Month, domain.ErrConflict)
		}
		return nil
	}
	old, ok := s.payments[p.ID]
	if !ok {
		return fmt.Errorf("payment %s: %w", p.ID, domain.ErrNotFound)
	}
	if old.Status != domain.StatusRejected {
		return fmt.Errorf("payment %s is %s, not rejected: %w", p.ID, old.Status, domain.ErrConflict)
	}
	return nil
}

func (s *Store) applyWriteLocked(w storage.PaymentWrite) {
	p := w.Payment
	if w.Resubmit {
		p.CreatedAt = s.payments[p.ID].CreatedAt
	}
	p.ID = newID(p.ID)
	s.payments[p.ID] = p
}

func (s *Store) WritePayment(_ context.Context, w storage.PaymentWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(w); err != nil {
		return err
	}
	s.applyWriteLocked(w)
	return nil
}

func (s *Store) SubmitPaymentGroup(_ context.Context, g domain.PaymentGroup, writes []storage.PaymentWrite) (domain.PaymentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// сначала проверяем всё, потом пишем: либо всё, либо ничего
	for _, w := range writes {
		if err := s.checkWriteLocked(w); err != nil {
			return domain.PaymentGroup{}, err
		}
	}
	g.ID = newID(g.ID)
	s.groups[g.ID] = g
	for _, w := range writes {
		s.applyWriteLocked(w)
	}
	return g, nil
}

func (s *Store) VerifyPayment(_ context.Context, id uuid.UUID, approve bool, reason string, at time.Time) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return domain.Payment{}, fmt.Errorf("payment %s: %w", id, domain.ErrNotFound)
	}
	if p.Status != domain.StatusPendingVerification {
		return domain.Payment{}, fmt.Errorf("payment %s is %s: %w", id, p.Status, domain.ErrConflict)
	}
	if approve {
		p.Status = domain.StatusPaid
		p.RejectionReason = ""
	} else {
		p.Status = domain.StatusRejected
		p.RejectionReason = reason
	}
	s.payments[id] = p

	if approve && p.PaymentGroupID != nil {
		s.settleGroupLocked(*p.PaymentGroupID, at)
	}
	return p, nil
}

func (s *Store) settleGroupLocked(groupID uuid.UUID, at time.Time) {
	g, ok := s.groups[groupID]
	if !ok {
		return
	}
	for _, p := range s.payments {
		if p.PaymentGroupID != nil && *p.PaymentGroupID == groupID && p.Status != domain.StatusPaid {
			return
		}
	}
	g.Status = domain.StatusPaid
	g.PaidAt = &at
	s.groups[groupID] = g
}

// Group is a test helper.
func (s *Store) Group(id uuid.UUID) (domain.PaymentGroup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	return g, ok
}

// === RegistrationStorage ===

func (s *Store) CreateRegistration(_ context.Context, r domain.HouseholdRegistration) (domain.HouseholdRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = newID(r.ID)
	r.Status = domain.RegistrationPending
	s.registrations[r.ID] = r
	return r, nil
}

func (s *Store) GetRegistration(_ context.Context, id uuid.UUID) (*domain.HouseholdRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", id, domain.ErrNotFound)
	}
	return &r, nil
}

func (s *Store) ListRegistrations(_ context.Context, mosqueID uuid.UUID, status domain.RegistrationStatus) ([]domain.HouseholdRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.HouseholdRegistration{}
	for _, r := range s.registrations {
		if r.MosqueID == mosqueID && (status == "" || r.Status == status) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b domain.HouseholdRegistration) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *Store) ApproveRegistration(_ context.Context, id uuid.UUID) (domain.Household, domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return domain.Household{}, domain.User{}, fmt.Errorf("registration %s: %w", id, domain.ErrNotFound)
	}
	if r.Status != domain.RegistrationPending {
		return domain.Household{}, domain.User{}, fmt.Errorf("registration %s is %s: %w", id, r.Status, domain.ErrConflict)
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, r.Email) {
			return domain.Household{}, domain.User{}, fmt.Errorf("user %q: %w", r.Email, domain.ErrConflict)
		}
	}

	hh := r.Household
	hh.MosqueID = r.MosqueID
	hh, err := s.createHouseholdLocked(hh)
	if err != nil {
		return domain.Household{}, domain.User{}, err
	}
	mosqueID, householdID := r.MosqueID, hh.ID
	u, err := s.createUserLocked(domain.User{
		Email:        r.Email,
		FullName:     r.FullName,
		PasswordHash: r.PasswordHash,
		Role:         domain.RoleHousehold,
		MosqueID:     &mosqueID,
		HouseholdID:  &householdID,
	})
	if err != nil {
		delete(s.households, hh.ID)
		return domain.Household{}, domain.User{}, err
	}
	r.Status = domain.RegistrationApproved
	s.registrations[id] = r
	return hh, u, nil
}

func (s *Store) RejectRegistration(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return fmt.Errorf("registration %s: %w", id, domain.ErrNotFound)
	}
	if r.Status != domain.RegistrationPending {
		return fmt.Errorf("registration %s is %s: %w", id, r.Status, domain.ErrConflict)
	}
	r.Status = domain.RegistrationRejected
	r.RejectionReason = reason
	s.registrations[id] = r
	return nil
}

// === StatsStorage ===

func (s *Store) inScopeLocked(m domain.Mosque, scope domain.StatsScope) bool {
	switch scope.Level {
	case domain.LevelMosque:
		return m.ID.String() == scope.Key
	case domain.LevelCity:
		return strings.EqualFold(m.City, scope.Key)
	case domain.LevelState:
		return strings.EqualFold(m.State, scope.Key)
	case domain.LevelNational:
		return true
	}
	return false
}

func (s *Store) CollectionStats(_ context.Context, scope domain.StatsScope, year int) (domain.CollectionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.CollectionStats{Level: scope.Level, Key: scope.Key, Year: year}
	households := map[uuid.UUID]bool{}
	for _, m := range s.mosques {
		if !s.inScopeLocked(m, scope) {
			continue
		}
		st.Mosques++
		for _, h := range s.households {
			if h.MosqueID == m.ID {
				st.Households++
				st.ExpectedAmount = st.ExpectedAmount.Add(decimal.NewFromFloat(h.AnnualAmount))
				households[h.ID] = true
			}
		}
	}
	for _, p := range s.payments {
		if !households[p.HouseholdID] || p.Year != year {
			continue
		}
		switch p.Status {
		case domain.StatusPaid:
			st.Collected = st.Collected.Add(decimal.NewFromFloat(p.Amount))
			st.PaidByMonth[p.Month-1]++
		case domain.StatusPendingVerification:
			st.Pending = st.Pending.Add(decimal.NewFromFloat(p.Amount))
		case domain.StatusRejected:
			st.RejectedCount++
		}
	}
	return st, nil
}
