// internal/handler/registrations.go
package handler

import (
	"log/slog"
	"net/http"

	"masjid-collection/internal/accounts"
	"masjid-collection/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type signupRequest struct {
	MosqueID  uuid.UUID        `json:"mosque_id" validate:"required"`
	Email     string           `json:"email" validate:"required,email"`
	FullName  string           `json:"full_name" validate:"required,notblank"`
	Password  string           `json:"password" validate:"required,min=8"`
	Household householdRequest `json:"household"`
}

// Signup godoc
// @Summary Public household registration, pending admin approval
// @Router /api/v1/registrations [post]
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(c, err, "")
		return
	}
	r, err := accounts.Register(c.Request.Context(), h.store, accounts.SignupInput{
		MosqueID:  req.MosqueID,
		Email:     req.Email,
		FullName:  req.FullName,
		Password:  req.Password,
		Household: req.Household.toDomain(),
	}, h.now())
	if err != nil {
		respondError(c, err, "Failed to register")
		return
	}
	slog.Info("Registration received", "registration_id", r.ID, "mosque_id", r.MosqueID)
	c.JSON(http.StatusCreated, r)
}

// ListRegistrations godoc
// @Summary Registrations of a mosque
// @Param status query string false "pending (default) | approved | rejected | all"
// @Router /api/v1/mosques/{id}/registrations [get]
func (h *Handler) ListRegistrations(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if !s.CanManageMosque(id) {
		respondError(c, domain.ErrForbidden, "")
		return
	}
	var status domain.RegistrationStatus
	switch q := c.DefaultQuery("status", "pending"); q {
	case "all":
	case string(domain.RegistrationPending), string(domain.RegistrationApproved), string(domain.RegistrationRejected):
		status = domain.RegistrationStatus(q)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending, approved, rejected or all"})
		return
	}
	list, err := h.store.ListRegistrations(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, err, "Failed to list registrations")
		return
	}
	c.JSON(http.StatusOK, list)
}

// managedRegistration loads :id and checks it belongs to the caller's mosque.
func (h *Handler) managedRegistration(c *gin.Context) (domain.HouseholdRegistration, domain.Session, bool) {
	s, ok := session(c)
	if !ok {
		return domain.HouseholdRegistration{}, s, false
	}
	id, ok := paramID(c, "id")
	if !ok {
		return domain.HouseholdRegistration{}, s, false
	}
	r, err := h.store.GetRegistration(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to load registration")
		return domain.HouseholdRegistration{}, s, false
	}
	if !s.CanManageMosque(r.MosqueID) {
		respondError(c, domain.ErrForbidden, "")
		return domain.HouseholdRegistration{}, s, false
	}
	return *r, s, true
}

// ApproveRegistration godoc
// @Summary Create the household and its login from a registration
// @Router /api/v1/registrations/{id}/approve [post]
func (h *Handler) ApproveRegistration(c *gin.Context) {
	r, s, ok := h.managedRegistration(c)
	if !ok {
		return
	}
	hh, u, err := h.store.ApproveRegistration(c.Request.Context(), r.ID)
	if err != nil {
		respondError(c, err, "Failed to approve registration")
		return
	}
	slog.Info("Registration approved", "registration_id", r.ID, "household_id", hh.ID, "by", s.UserID)
	c.JSON(http.StatusOK, gin.H{"household": hh, "user": u})
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,notblank"`
}

// RejectRegistration godoc
// @Summary Reject a registration with a reason
// @Router /api/v1/registrations/{id}/reject [post]
func (h *Handler) RejectRegistration(c *gin.Context) {
	r, s, ok := h.managedRegistration(c)
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(c, err, "")
		return
	}
	if err := h.store.RejectRegistration(c.Request.Context(), r.ID, req.Reason); err != nil {
		respondError(c, err, "Failed to reject registration")
		return
	}
	slog.Info("Registration rejected", "registration_id", r.ID, "by", s.UserID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
