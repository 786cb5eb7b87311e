// internal/handler/payments.go
package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"masjid-collection/internal/blob"
	"masjid-collection/internal/domain"
	"masjid-collection/internal/events"
	"masjid-collection/internal/payments"

	"github.com/gin-gonic/gin"
)

type paymentsQuery struct {
	Year   int    `form:"year" validate:"omitempty,gte=2000,lte=2100"`
	From   int    `form:"from" validate:"omitempty,month"`
	To     int    `form:"to" validate:"omitempty,month"`
	Status string `form:"status" validate:"statusfilter"`
}

// ListPayments godoc
// @Summary Month statuses of a household for one year
// @Param year query int false "Year, defaults to the current one"
// @Param from query int false "First month (1-12)"
// @Param to query int false "Last month (1-12)"
// @Param status query string false "all | unpaid | pending_verification | paid | rejected"
// @Router /api/v1/households/{id}/payments [get]
func (h *Handler) ListPayments(c *gin.Context) {
	hh, _, _, ok := h.loadHousehold(c)
	if !ok {
		return
	}
	var q paymentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query"})
		return
	}
	if err := validateStruct(q); err != nil {
		respondError(c, err, "")
		return
	}
	if q.From == 0 {
		q.From = 1
	}
	if q.To == 0 {
		q.To = 12
	}
	year := h.yearOrNow(q.Year)
	filter, _ := domain.ParseStatusFilter(q.Status)

	rows, err := h.store.ListPayments(c.Request.Context(), hh.ID, year)
	if err != nil {
		respondError(c, err, "Failed to load payments")
		return
	}
	months := payments.ApplyStatusFilter(payments.MonthsInRange(q.From, q.To), rows, filter)

	c.JSON(http.StatusOK, gin.H{
		"household":      hh,
		"year":           year,
		"monthly_amount": payments.MonthlyAmount(hh.AnnualAmount),
		"months":         payments.Statuses(rows, year, months),
	})
}

type historyQuery struct {
	Year   int    `form:"year" validate:"omitempty,gte=2000,lte=2100"`
	Status string `form:"status" validate:"statusfilter"`
	Sort   string `form:"sort" validate:"omitempty,oneof=month date amount"`
	Order  string `form:"order" validate:"omitempty,oneof=asc desc"`
}

func (h *Handler) history(c *gin.Context) (domain.Household, int, []domain.Payment, bool) {
	hh, _, _, ok := h.loadHousehold(c)
	if !ok {
		return hh, 0, nil, false
	}
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query"})
		return hh, 0, nil, false
	}
	if err := validateStruct(q); err != nil {
		respondError(c, err, "")
		return hh, 0, nil, false
	}
	year := h.yearOrNow(q.Year)
	filter, _ := domain.ParseStatusFilter(q.Status)
	sortKey, _ := payments.ParseSortKey(q.Sort)

	rows, err := h.store.ListPayments(c.Request.Context(), hh.ID, year)
	if err != nil {
		respondError(c, err, "Failed to load payments")
		return hh, 0, nil, false
	}
	reverse := q.Order == "desc"
	if sortKey == payments.SortDate {
		// date is newest first unless asc is asked for
		reverse = q.Order == "asc"
	}
	return hh, year, payments.History(rows, payments.HistoryQuery{Status: filter, Sort: sortKey, Desc: reverse}), true
}

// History godoc
// @Summary Stored payments of a household, filtered and sorted
// @Param sort query string false "month | date | amount"
// @Param order query string false "asc | desc"
// @Router /api/v1/households/{id}/history [get]
func (h *Handler) History(c *gin.Context) {
	_, year, rows, ok := h.history(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "payments": rows})
}

// ExportHistory godoc
// @Summary Payment history as CSV
// @Produce text/csv
// @Router /api/v1/households/{id}/history/export [get]
func (h *Handler) ExportHistory(c *gin.Context) {
	hh, year, rows, ok := h.history(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := payments.WriteCSV(&buf, rows); err != nil {
		respondError(c, err, "Failed to export history")
		return
	}
	slog.Info("History exported", "household_id", hh.ID, "year", year, "rows", len(rows))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, payments.CSVFilename(year)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

type reportQuery struct {
	From string `form:"from" validate:"required,yearmonth"`
	To   string `form:"to" validate:"required,yearmonth"`
}

// Report godoc
// @Summary Household detail report across a month range
// @Param from query string true "Start month, YYYY-MM"
// @Param to query string true "End month, YYYY-MM"
// @Router /api/v1/households/{id}/report [get]
func (h *Handler) Report(c *gin.Context) {
	hh, _, _, ok := h.loadHousehold(c)
	if !ok {
		return
	}
	var q reportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query"})
		return
	}
	if err := validateStruct(q); err != nil {
		respondError(c, err, "")
		return
	}
	from, _ := domain.ParseYearMonth(q.From)
	to, _ := domain.ParseYearMonth(q.To)
	if err := payments.CheckReportWindow(from, to); err != nil {
		respondError(c, err, "")
		return
	}

	rows, err := h.store.ListPaymentsBetween(c.Request.Context(), hh.ID, from, to)
	if err != nil {
		respondError(c, err, "Failed to load payments")
		return
	}
	c.JSON(http.StatusOK, payments.BuildReport(hh, rows, from, to))
}

// selectMonths builds a selection the way the dashboard does: locked months
// are refused rather than silently skipped.
func selectMonths(rows []domain.Payment, months []int) (*payments.Selection, error) {
	sel := payments.NewSelection()
	for _, m := range months {
		st := payments.ResolveStatus(rows, m)
		if st.Locked() {
			return nil, fmt.Errorf("%w: %s is %s", payments.ErrSelectionStale, payments.MonthName(m), st)
		}
		if !sel.Contains(m) {
			sel.Toggle(m, st)
		}
	}
	return sel, nil
}

// UPILink godoc
// @Summary UPI deep link for paying the selected months
// @Param year query int false "Year"
// @Param months query string true "Comma separated months, e.g. 1,2,3"
// @Router /api/v1/households/{id}/upi-link [get]
func (h *Handler) UPILink(c *gin.Context) {
	hh, m, _, ok := h.loadHousehold(c)
	if !ok {
		return
	}
	months, err := parseMonths(c.QueryArray("months"))
	if err != nil {
		respondError(c, err, "")
		return
	}
	var q struct {
		Year int `form:"year" validate:"omitempty,gte=2000,lte=2100"`
	}
	_ = c.ShouldBindQuery(&q)
	if err := validateStruct(q); err != nil {
		respondError(c, err, "")
		return
	}
	year := h.yearOrNow(q.Year)

	rows, err := h.store.ListPayments(c.Request.Context(), hh.ID, year)
	if err != nil {
		respondError(c, err, "Failed to load payments")
		return
	}
	sel, err := selectMonths(rows, months)
	if err != nil {
		respondError(c, err, "")
		return
	}
	amount := payments.AmountDue(sel, hh.AnnualAmount)
	link, err := payments.UPILink(m, hh, year, sel.Months(), amount)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link, "amount": amount, "months": sel.Months(), "year": year})
}

// Submit godoc
// @Summary Submit a payment for the selected months with a screenshot
// @Accept multipart/form-data
// @Param year formData int false "Year"
// @Param months formData string true "Comma separated months"
// @Param payment_method formData string false "Defaults to upi"
// @Param screenshot formData file true "Payment screenshot"
// @Router /api/v1/households/{id}/submissions [post]
func (h *Handler) Submit(c *gin.Context) {
	hh, m, s, ok := h.loadHousehold(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	year := h.now().Year()
	if v := c.PostForm("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year is invalid"})
			return
		}
		year = y
	}
	months, err := parseMonths(c.PostFormArray("months"))
	if err != nil {
		respondError(c, err, "")
		return
	}

	sub := payments.NewSubmission(payments.Deps{
		Payments: h.store,
		Blobs:    h.blobs,
		Mode:     h.submitMode,
		Now:      h.now,
	}, s.UserID, hh, m, year)
	sub.SetPaymentMethod(c.PostForm("payment_method"))
	if err := sub.Load(ctx); err != nil {
		respondError(c, err, "Failed to load payments")
		return
	}
	if _, err := selectMonths(sub.Rows(), months); err != nil {
		respondError(c, err, "")
		return
	}
	for _, mo := range months {
		if !slices.Contains(sub.Months(), mo) {
			_ = sub.Toggle(mo)
		}
	}
	if err := sub.Open(); err != nil {
		respondError(c, err, "")
		return
	}
	_ = sub.ConfirmPaid()

	fh, err := c.FormFile("screenshot")
	if err != nil {
		respondError(c, payments.ErrNoScreenshot, "")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err, "Failed to read screenshot")
		return
	}
	defer f.Close()
	obj, err := blob.ReadScreenshot(f, h.screenshot)
	if err != nil {
		respondError(c, err, "Failed to process screenshot")
		return
	}
	if err := sub.Attach(obj); err != nil {
		respondError(c, err, "")
		return
	}

	receipt, err := sub.Submit(ctx)
	if err != nil {
		respondError(c, err, "Failed to submit payment")
		return
	}
	events.Publish(ctx, h.events, events.Submitted(hh, receipt.Group.ID, receipt.Year, receipt.Months, receipt.Amount, h.now()))
	c.JSON(http.StatusCreated, receipt)
}

type manualPaymentRequest struct {
	Month         int     `json:"month" validate:"month"`
	Year          int     `json:"year" validate:"required,gte=2000,lte=2100"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	PaymentMethod string  `json:"payment_method"`
	TransactionID string  `json:"transaction_id"`
}

// RecordManual godoc
// @Summary Record a payment received directly by the mosque
// @Router /api/v1/households/{id}/payments/manual [post]
func (h *Handler) RecordManual(c *gin.Context) {
	hh, _, s, ok := h.loadHousehold(c)
	if !ok {
		return
	}
	if !s.CanManageMosque(hh.MosqueID) {
		respondError(c, domain.ErrForbidden, "")
		return
	}
	var req manualPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(c, err, "")
		return
	}

	p, err := payments.RecordManual(c.Request.Context(), h.store, hh, payments.ManualEntry{
		Month:         req.Month,
		Year:          req.Year,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
	}, h.now())
	if err != nil {
		respondError(c, err, "Failed to record payment")
		return
	}
	slog.Info("Manual payment recorded", "household_id", hh.ID, "month", p.Month, "year", p.Year, "by", s.UserID)
	c.JSON(http.StatusCreated, p)
}

type verifyRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Reason  string `json:"reason"`
}

// Verify godoc
// @Summary Approve or reject a pending payment
// @Router /api/v1/payments/{id}/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(c, err, "")
		return
	}

	ctx := c.Request.Context()
	p, err := h.store.GetPayment(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to load payment")
		return
	}
	hh, err := h.store.GetHousehold(ctx, p.HouseholdID)
	if err != nil {
		respondError(c, err, "Failed to load household")
		return
	}
	if !s.CanManageMosque(hh.MosqueID) {
		respondError(c, domain.ErrForbidden, "")
		return
	}

	updated, err := payments.Verify(ctx, h.store, id, *req.Approve, req.Reason, h.now())
	if err != nil {
		respondError(c, err, "Failed to verify payment")
		return
	}
	slog.Info("Payment verified", "payment_id", id, "status", updated.Status, "by", s.UserID)
	events.Publish(ctx, h.events, events.Verified(*hh, updated, h.now()))
	c.JSON(http.StatusOK, updated)
}
