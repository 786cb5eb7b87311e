// internal/handler/households.go
package handler

import (
	"log/slog"
	"net/http"

	"masjid-collection/internal/domain"

	"github.com/gin-gonic/gin"
)

// ListHouseholds godoc
// @Summary Households of a mosque
// @Router /api/v1/mosques/{id}/households [get]
func (h *Handler) ListHouseholds(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	m, err := h.store.GetMosque(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to load mosque")
		return
	}
	if !s.CanViewMosque(*m) {
		respondError(c, domain.ErrForbidden, "")
		return
	}
	list, err := h.store.ListHouseholds(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to list households")
		return
	}
	c.JSON(http.StatusOK, list)
}

type householdRequest struct {
	HouseNumber   string  `json:"house_number" validate:"required,notblank"`
	HeadOfHouse   string  `json:"head_of_house" validate:"required,notblank"`
	TotalMembers  int     `json:"total_members" validate:"gte=0"`
	MaleMembers   int     `json:"male_members" validate:"gte=0"`
	FemaleMembers int     `json:"female_members" validate:"gte=0"`
	ContactNumber string  `json:"contact_number"`
	AnnualAmount  float64 `json:"annual_amount" validate:"gte=0"`
}

func (r householdRequest) toDomain() domain.Household {
	return domain.Household{
		HouseNumber:   r.HouseNumber,
		HeadOfHouse:   r.HeadOfHouse,
		TotalMembers:  r.TotalMembers,
		MaleMembers:   r.MaleMembers,
		FemaleMembers: r.FemaleMembers,
		ContactNumber: r.ContactNumber,
		AnnualAmount:  r.AnnualAmount,
	}
}

// UpdateHousehold godoc
// @Summary Edit household details
// @Router /api/v1/households/{id} [put]
func (h *Handler) UpdateHousehold(c *gin.Context) {
	hh, _, s, ok := h.loadHousehold(c)
	if !ok {
		return
	}
	if !s.CanManageMosque(hh.MosqueID) {
		respondError(c, domain.ErrForbidden, "")
		return
	}
	var req householdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(c, err, "")
		return
	}
	updated := req.toDomain()
	updated.ID = hh.ID
	updated.MosqueID = hh.MosqueID
	if err := h.store.UpdateHousehold(c.Request.Context(), updated); err != nil {
		respondError(c, err, "Failed to update household")
		return
	}
	slog.Info("Household updated", "household_id", hh.ID, "by", s.UserID)
	c.JSON(http.StatusOK, updated)
}

// DeleteHousehold godoc
// @Summary Remove a household with its payments and login
// @Router /api/v1/households/{id} [delete]
func (h *Handler) DeleteHousehold(c *gin.Context) {
	hh, _, s, ok := h.loadHousehold(c)
	if !ok {
		return
	}
	if !s.CanManageMosque(hh.MosqueID) {
		respondError(c, domain.ErrForbidden, "")
		return
	}
	if err := h.store.DeleteHousehold(c.Request.Context(), hh.ID); err != nil {
		respondError(c, err, "Failed to delete household")
		return
	}
	slog.Info("Household deleted", "household_id", hh.ID, "by", s.UserID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
