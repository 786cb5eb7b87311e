// internal/handler/handler.go
package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"masjid-collection/internal/auth"
	"masjid-collection/internal/blob"
	"masjid-collection/internal/domain"
	"masjid-collection/internal/events"
	"masjid-collection/internal/middleware"
	"masjid-collection/internal/payments"
	"masjid-collection/internal/storage"
	val "masjid-collection/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type TokenIssuer interface {
	GenerateToken(u domain.User) (string, time.Time, error)
}

type Options struct {
	Store      storage.Store
	Tokens     TokenIssuer
	Blobs      blob.Store
	Events     events.Publisher // nil disables events
	SubmitMode payments.Mode
	Screenshot blob.ScreenshotOptions
	Now        func() time.Time
}

type Handler struct {
	store      storage.Store
	tokens     TokenIssuer
	blobs      blob.Store
	events     events.Publisher
	submitMode payments.Mode
	screenshot blob.ScreenshotOptions
	now        func() time.Time
}

func New(opt Options) *Handler {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Screenshot.MaxBytes == 0 {
		opt.Screenshot = blob.DefaultScreenshotOptions()
	}
	return &Handler{
		store:      opt.Store,
		tokens:     opt.Tokens,
		blobs:      opt.Blobs,
		events:     opt.Events,
		submitMode: opt.SubmitMode,
		screenshot: opt.Screenshot,
		now:        opt.Now,
	}
}

// Routes mounts every route on the /api/v1 group.
func (h *Handler) Routes(v1 *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	v1.GET("/health", h.Health)
	v1.POST("/login", h.Login)
	v1.POST("/registrations", h.Signup)

	admins := middleware.RequireRole(domain.RoleMosqueAdmin, domain.RoleCityAdmin, domain.RoleSuperAdmin)
	mosqueAdmin := middleware.RequireRole(domain.RoleMosqueAdmin)
	household := middleware.RequireRole(domain.RoleHousehold)

	api := v1.Group("", requireAuth)
	{
		api.GET("/me", h.Me)

		api.GET("/households/:id/payments", h.ListPayments)
		api.GET("/households/:id/history", h.History)
		api.GET("/households/:id/history/export", h.ExportHistory)
		api.GET("/households/:id/report", admins, h.Report)
		api.GET("/households/:id/upi-link", household, h.UPILink)
		api.POST("/households/:id/submissions", household, h.Submit)
		api.POST("/households/:id/payments/manual", mosqueAdmin, h.RecordManual)
		api.POST("/payments/:id/verify", mosqueAdmin, h.Verify)

		api.GET("/mosques/:id/households", admins, h.ListHouseholds)
		api.PUT("/households/:id", mosqueAdmin, h.UpdateHousehold)
		api.DELETE("/households/:id", mosqueAdmin, h.DeleteHousehold)

		api.GET("/mosques/:id/registrations", mosqueAdmin, h.ListRegistrations)
		api.POST("/registrations/:id/approve", mosqueAdmin, h.ApproveRegistration)
		api.POST("/registrations/:id/reject", mosqueAdmin, h.RejectRegistration)

		api.POST("/admins", middleware.RequireRole(domain.RoleSuperAdmin), h.CreateAdmin)
		api.GET("/stats", admins, h.Stats)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// === helpers ===

func session(c *gin.Context) (domain.Session, bool) {
	s, ok := middleware.Session(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return s, ok
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be a UUID", name)})
		return uuid.Nil, false
	}
	return id, true
}

// loadHousehold resolves :id and checks the caller may read it.
func (h *Handler) loadHousehold(c *gin.Context) (domain.Household, domain.Mosque, domain.Session, bool) {
	s, ok := session(c)
	if !ok {
		return domain.Household{}, domain.Mosque{}, s, false
	}
	id, ok := paramID(c, "id")
	if !ok {
		return domain.Household{}, domain.Mosque{}, s, false
	}
	hh, err := h.store.GetHousehold(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to load household")
		return domain.Household{}, domain.Mosque{}, s, false
	}
	m, err := h.store.GetMosque(c.Request.Context(), hh.MosqueID)
	if err != nil {
		respondError(c, err, "Failed to load mosque")
		return domain.Household{}, domain.Mosque{}, s, false
	}
	if !s.CanViewHousehold(*hh, *m) {
		respondError(c, domain.ErrForbidden, "")
		return domain.Household{}, domain.Mosque{}, s, false
	}
	return *hh, *m, s, true
}

func (h *Handler) yearOrNow(y int) int {
	if y == 0 {
		return h.now().Year()
	}
	return y
}

// parseMonths accepts "1,2,3" and repeated values.
func parseMonths(values []string) ([]int, error) {
	var out []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			m, err := strconv.Atoi(part)
			if err != nil || m < 1 || m > 12 {
				return nil, domain.ErrInvalidMonth
			}
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, payments.ErrEmptySelection
	}
	return out, nil
}

// respondError maps domain errors to HTTP statuses. msg replaces the error
// text for 5xx responses.
func respondError(c *gin.Context, err error, msg string) {
	var batch *payments.BatchError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &batch):
		slog.ErrorContext(c.Request.Context(), "Submission partially written", "error", err, "committed", batch.Committed)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Submission partially failed", "committed_months": batch.Committed})
		return
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, auth.ErrBadCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict), errors.Is(err, payments.ErrSelectionStale):
		status = http.StatusConflict
	case errors.Is(err, payments.ErrBelowMinimum):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, blob.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidMonth),
		errors.Is(err, payments.ErrEmptySelection), errors.Is(err, payments.ErrNoScreenshot),
		errors.Is(err, payments.ErrInvalidTransition),
		errors.Is(err, blob.ErrNotImage), errors.Is(err, blob.ErrEmpty):
		status = http.StatusBadRequest
	case errors.Is(err, payments.ErrUpload):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), msg, "error", err, "path", c.FullPath())
		if msg == "" {
			msg = "Internal error"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func validateStruct(v any) error {
	if err := val.Validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		var errs []string
		for _, e := range verrs {
			errs = append(errs, fieldErrorToString(e))
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(errs, "; "))
	}
	return nil
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "yearmonth":
		return fmt.Sprintf("%s must be in YYYY-MM format", e.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", e.Field())
	case "month":
		return fmt.Sprintf("%s must be between 1 and 12", e.Field())
	case "statusfilter":
		return fmt.Sprintf("%s must be all, unpaid, pending_verification, paid or rejected", e.Field())
	case "email":
		return fmt.Sprintf("%s must be an email address", e.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
	case "min":
		if e.Param() == "1" {
			return fmt.Sprintf("%s must not be empty", e.Field())
		}
		return fmt.Sprintf("%s is too short", e.Field())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", e.Field())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
