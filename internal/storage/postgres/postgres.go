// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"masjid-collection/internal/domain"
	"masjid-collection/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

type Storage struct {
	db *pgxpool.Pool
}

var _ storage.Store = (*Storage)(nil)

func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

// Connect opens a pool and pings it, retrying with exponential backoff while
// the database comes up.
func Connect(ctx context.Context, dsn string, retries int) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if retries < 0 {
		retries = 0
	}
	b := retry.WithMaxRetries(uint64(retries), retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			slog.Warn("Database not ready", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (s *Storage) Close() error {
	s.db.Close()
	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// cleanText заменяет неразрывные пробелы и схлопывает повторы
func cleanText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return unicode.IsSpace(r) || !unicode.IsPrint(r) })
	return strings.Join(fields, " ")
}

// mapErr turns driver errors into domain sentinels.
func mapErr(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", what, domain.ErrConflict)
		case "23503", "23514":
			return fmt.Errorf("%s: %w: %s", what, domain.ErrInvalidInput, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// === MosqueStorage ===

func (s *Storage) CreateMosque(ctx context.Context, m domain.Mosque) (domain.Mosque, error) {
	m.ID = newID(m.ID)
	m.Name = cleanText(m.Name)
	_, err := s.db.Exec(ctx, `
		INSERT INTO mosques (id, name, city, state, upi_id, minimum_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.Name, m.City, m.State, m.UPIID, m.MinimumAmount)
	if err != nil {
		return domain.Mosque{}, mapErr("create mosque", err)
	}
	return m, nil
}

func (s *Storage) GetMosque(ctx context.Context, id uuid.UUID) (*domain.Mosque, error) {
	var m domain.Mosque
	err := s.db.QueryRow(ctx, `
		SELECT id, name, city, state, upi_id, minimum_amount FROM mosques WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.City, &m.State, &m.UPIID, &m.MinimumAmount)
	if err != nil {
		return nil, mapErr("get mosque", err)
	}
	return &m, nil
}

// === UserStorage ===

const userColumns = `id, email, full_name, password_hash, role, mosque_id, household_id, city`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.MosqueID, &u.HouseholdID, &u.City)
	return u, err
}

func insertUser(ctx context.Context, q querier, u domain.User) (domain.User, error) {
	u.ID = newID(u.ID)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := q.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Email, u.FullName, u.PasswordHash, u.Role, u.MosqueID, u.HouseholdID, u.City)
	if err != nil {
		return domain.User{}, mapErr("create user", err)
	}
	return u, nil
}

func (s *Storage) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	return insertUser(ctx, s.db, u)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, strings.TrimSpace(email)))
	if err != nil {
		return nil, mapErr("get user", err)
	}
	return &u, nil
}

// === HouseholdStorage ===

const householdColumns = `id, mosque_id, house_number, head_of_house, total_members, male_members, female_members, contact_number, annual_amount`

func scanHousehold(row pgx.Row) (domain.Household, error) {
	var h domain.Household
	err := row.Scan(&h.ID, &h.MosqueID, &h.HouseNumber, &h.HeadOfHouse, &h.TotalMembers, &h.MaleMembers, &h.FemaleMembers, &h.ContactNumber, &h.AnnualAmount)
	return h, err
}

func insertHousehold(ctx context.Context, q querier, h domain.Household) (domain.Household, error) {
	h.ID = newID(h.ID)
	h.HouseNumber = cleanText(h.HouseNumber)
	h.HeadOfHouse = cleanText(h.HeadOfHouse)
	_, err := q.Exec(ctx, `
		INSERT INTO households (`+householdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, h.ID, h.MosqueID, h.HouseNumber, h.HeadOfHouse, h.TotalMembers, h.MaleMembers, h.FemaleMembers, h.ContactNumber, h.AnnualAmount)
	if err != nil {
		return domain.Household{}, mapErr("create household", err)
	}
	return h, nil
}

func (s *Storage) CreateHousehold(ctx context.Context, h domain.Household) (domain.Household, error) {
	return insertHousehold(ctx, s.db, h)
}

func (s *Storage) GetHousehold(ctx context.Context, id uuid.UUID) (*domain.Household, error) {
	h, err := scanHousehold(s.db.QueryRow(ctx, `SELECT `+householdColumns+` FROM households WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get household", err)
	}
	return &h, nil
}

func (s *Storage) ListHouseholds(ctx context.Context, mosqueID uuid.UUID) ([]domain.Household, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+householdColumns+` FROM households WHERE mosque_id = $1 ORDER BY house_number
	`, mosqueID)
	if err != nil {
		return nil, mapErr("list households", err)
	}
	defer rows.Close()

	out := []domain.Household{}
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Storage) UpdateHousehold(ctx context.Context, h domain.Household) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE households
		SET house_number = $2, head_of_house = $3, total_members = $4, male_members = $5,
		    female_members = $6, contact_number = $7, annual_amount = $8
		WHERE id = $1
	`, h.ID, cleanText(h.HouseNumber), cleanText(h.HeadOfHouse), h.TotalMembers, h.MaleMembers, h.FemaleMembers, h.ContactNumber, h.AnnualAmount)
	if err != nil {
		return mapErr("update household", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("household %s: %w", h.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteHousehold relies on ON DELETE CASCADE for payments, groups and the login.
func (s *Storage) DeleteHousehold(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM households WHERE id = $1`, id)
	if err != nil {
		return mapErr("delete household", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("household %s: %w", id, domain.ErrNotFound)
	}
	slog.Debug("Household deleted", "household_id", id)
	return nil
}

// === PaymentStorage ===

const paymentColumns = `id, household_id, month, year, amount, payment_date, payment_method,
	transaction_id, status, rejection_reason, receipt_url, payment_group_id, created_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.HouseholdID, &p.Month, &p.Year, &p.Amount, &p.PaymentDate, &p.PaymentMethod,
		&p.TransactionID, &p.Status, &p.RejectionReason, &p.ReceiptURL, &p.PaymentGroupID, &p.CreatedAt)
	return p, err
}

func (s *Storage) queryPayments(ctx context.Context, sql string, args ...any) ([]domain.Payment, error) {
	rows, err := s.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE `+sql+` ORDER BY year, month`, args...)
	if err != nil {
		return nil, mapErr("list payments", err)
	}
	defer rows.Close()

	out := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Storage) ListPayments(ctx context.Context, householdID uuid.UUID, year int) ([]domain.Payment, error) {
	return s.queryPayments(ctx, `household_id = $1 AND year = $2`, householdID, year)
}

func (s *Storage) ListPaymentsBetween(ctx context.Context, householdID uuid.UUID, from, to domain.YearMonth) ([]domain.Payment, error) {
	return s.queryPayments(ctx, `household_id = $1 AND (year * 12 + month) BETWEEN $2 AND $3`,
		householdID, from.Year*12+from.Month, to.Year*12+to.Month)
}

func (s *Storage) PaymentsForMonths(ctx context.Context, householdID uuid.UUID, year int, months []int) ([]domain.Payment, error) {
	return s.queryPayments(ctx, `household_id = $1 AND year = $2 AND month = ANY($3)`, householdID, year, months)
}

func (s *Storage) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := scanPayment(s.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get payment", err)
	}
	return &p, nil
}

func insertPayment(ctx context.Context, q querier, p domain.Payment) (domain.Payment, error) {
	p.ID = newID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.HouseholdID, p.Month, p.Year, p.Amount, p.PaymentDate, p.PaymentMethod,
		p.TransactionID, p.Status, p.RejectionReason, p.ReceiptURL, p.PaymentGroupID, p.CreatedAt)
	if err != nil {
		return domain.Payment{}, mapErr(fmt.Sprintf("insert payment %d-%02d", p.Year, p.Month), err)
	}
	return p, nil
}

func (s *Storage) InsertPayment(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	return insertPayment(ctx, s.db, p)
}

func insertGroup(ctx context.Context, q querier, g domain.PaymentGroup) (domain.PaymentGroup, error) {
	g.ID = newID(g.ID)
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO payment_groups (id, household_id, total_amount, screenshot_url, status, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, g.HouseholdID, g.TotalAmount, g.ScreenshotURL, g.Status, g.PaidAt, g.CreatedAt)
	if err != nil {
		return domain.PaymentGroup{}, mapErr("create payment group", err)
	}
	return g, nil
}

func (s *Storage) CreatePaymentGroup(ctx context.Context, g domain.PaymentGroup) (domain.PaymentGroup, error) {
	return insertGroup(ctx, s.db, g)
}

// writePayment inserts a new month or resubmits a rejected one in place.
func writePayment(ctx context.Context, q querier, w storage.PaymentWrite) error {
	p := w.Payment
	if !w.Resubmit {
		_, err := insertPayment(ctx, q, p)
		return err
	}
	tag, err := q.Exec(ctx, `
		UPDATE payments
		SET amount = $2, payment_date = $3, payment_method = $4, status = $5,
		    rejection_reason = '', receipt_url = $6, payment_group_id = $7
		WHERE id = $1 AND status = 'rejected'
	`, p.ID, p.Amount, p.PaymentDate, p.PaymentMethod, p.Status, p.ReceiptURL, p.PaymentGroupID)
	if err != nil {
		return mapErr("resubmit payment", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("resubmit payment %s: not rejected anymore: %w", p.ID, domain.ErrConflict)
	}
	return nil
}

func (s *Storage) WritePayment(ctx context.Context, w storage.PaymentWrite) error {
	return writePayment(ctx, s.db, w)
}

func (s *Storage) SubmitPaymentGroup(ctx context.Context, g domain.PaymentGroup, writes []storage.PaymentWrite) (domain.PaymentGroup, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.PaymentGroup{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err = insertGroup(ctx, tx, g)
	if err != nil {
		return domain.PaymentGroup{}, err
	}
	for _, w := range writes {
		if err := writePayment(ctx, tx, w); err != nil {
			return domain.PaymentGroup{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.PaymentGroup{}, fmt.Errorf("commit tx: %w", err)
	}
	slog.Debug("SubmitPaymentGroup completed", "group_id", g.ID, "payments", len(writes))
	return g, nil
}

func (s *Storage) VerifyPayment(ctx context.Context, id uuid.UUID, approve bool, reason string, at time.Time) (domain.Payment, error) {
	status := domain.StatusRejected
	if approve {
		status = domain.StatusPaid
		reason = ""
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments SET status = $2, rejection_reason = $3
		WHERE id = $1 AND status = 'pending_verification'
		RETURNING `+paymentColumns, id, status, reason))
	if errors.Is(err, pgx.ErrNoRows) {
		var current domain.Status
		if err := tx.QueryRow(ctx, `SELECT status FROM payments WHERE id = $1`, id).Scan(&current); err != nil {
			return domain.Payment{}, mapErr("get payment", err)
		}
		return domain.Payment{}, fmt.Errorf("payment %s is %s: %w", id, current, domain.ErrConflict)
	}
	if err != nil {
		return domain.Payment{}, mapErr("verify payment", err)
	}

	if approve && p.PaymentGroupID != nil {
		_, err = tx.Exec(ctx, `
			UPDATE payment_groups SET status = 'paid', paid_at = $2
			WHERE id = $1 AND NOT EXISTS (
				SELECT 1 FROM payments WHERE payment_group_id = $1 AND status <> 'paid'
			)
		`, *p.PaymentGroupID, at)
		if err != nil {
			return domain.Payment{}, mapErr("settle payment group", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Payment{}, fmt.Errorf("commit tx: %w", err)
	}
	return p, nil
}

// === RegistrationStorage ===

const registrationColumns = `id, mosque_id, email, full_name, password_hash, house_number, head_of_house,
	total_members, male_members, female_members, contact_number, annual_amount, status, rejection_reason, created_at`

func scanRegistration(row pgx.Row) (domain.HouseholdRegistration, error) {
	var r domain.HouseholdRegistration
	h := &r.Household
	err := row.Scan(&r.ID, &r.MosqueID, &r.Email, &r.FullName, &r.PasswordHash, &h.HouseNumber, &h.HeadOfHouse,
		&h.TotalMembers, &h.MaleMembers, &h.FemaleMembers, &h.ContactNumber, &h.AnnualAmount, &r.Status, &r.RejectionReason, &r.CreatedAt)
	h.MosqueID = r.MosqueID
	return r, err
}

func (s *Storage) CreateRegistration(ctx context.Context, r domain.HouseholdRegistration) (domain.HouseholdRegistration, error) {
	r.ID = newID(r.ID)
	r.Status = domain.RegistrationPending
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	h := r.Household
	_, err := s.db.Exec(ctx, `
		INSERT INTO household_registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, r.ID, r.MosqueID, r.Email, r.FullName, r.PasswordHash, cleanText(h.HouseNumber), cleanText(h.HeadOfHouse),
		h.TotalMembers, h.MaleMembers, h.FemaleMembers, h.ContactNumber, h.AnnualAmount, r.Status, r.RejectionReason, r.CreatedAt)
	if err != nil {
		return domain.HouseholdRegistration{}, mapErr("create registration", err)
	}
	return r, nil
}

func (s *Storage) GetRegistration(ctx context.Context, id uuid.UUID) (*domain.HouseholdRegistration, error) {
	r, err := scanRegistration(s.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM household_registrations WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get registration", err)
	}
	return &r, nil
}

func (s *Storage) ListRegistrations(ctx context.Context, mosqueID uuid.UUID, status domain.RegistrationStatus) ([]domain.HouseholdRegistration, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+registrationColumns+` FROM household_registrations
		WHERE mosque_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at
	`, mosqueID, string(status))
	if err != nil {
		return nil, mapErr("list registrations", err)
	}
	defer rows.Close()

	out := []domain.HouseholdRegistration{}
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Storage) ApproveRegistration(ctx context.Context, id uuid.UUID) (domain.Household, domain.User, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.Household{}, domain.User{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	r, err := scanRegistration(tx.QueryRow(ctx, `
		SELECT `+registrationColumns+` FROM household_registrations WHERE id = $1 FOR UPDATE
	`, id))
	if err != nil {
		return domain.Household{}, domain.User{}, mapErr("get registration", err)
	}
	if r.Status != domain.RegistrationPending {
		return domain.Household{}, domain.User{}, fmt.Errorf("registration %s is %s: %w", id, r.Status, domain.ErrConflict)
	}

	hh, err := insertHousehold(ctx, tx, r.Household)
	if err != nil {
		return domain.Household{}, domain.User{}, err
	}
	mosqueID, householdID := r.MosqueID, hh.ID
	u, err := insertUser(ctx, tx, domain.User{
		Email:        r.Email,
		FullName:     r.FullName,
		PasswordHash: r.PasswordHash,
		Role:         domain.RoleHousehold,
		MosqueID:     &mosqueID,
		HouseholdID:  &householdID,
	})
	if err != nil {
		return domain.Household{}, domain.User{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE household_registrations SET status = 'approved' WHERE id = $1`, id); err != nil {
		return domain.Household{}, domain.User{}, mapErr("approve registration", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Household{}, domain.User{}, fmt.Errorf("commit tx: %w", err)
	}
	return hh, u, nil
}

func (s *Storage) RejectRegistration(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE household_registrations SET status = 'rejected', rejection_reason = $2
		WHERE id = $1 AND status = 'pending'
	`, id, reason)
	if err != nil {
		return mapErr("reject registration", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetRegistration(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("registration %s is not pending: %w", id, domain.ErrConflict)
	}
	return nil
}
