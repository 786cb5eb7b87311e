// internal/handler/users.go
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"masjid-collection/internal/accounts"
	"masjid-collection/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login godoc
// @Summary Exchange email and password for an access token
// @Router /api/v1/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(c, err, "")
		return
	}
	u, err := accounts.Login(c.Request.Context(), h.store, req.Email, req.Password)
	if err != nil {
		respondError(c, err, "Login failed")
		return
	}
	token, expiresAt, err := h.tokens.GenerateToken(u)
	if err != nil {
		respondError(c, err, "Token generation failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       u,
		"dashboard":  u.Role.Dashboard(),
	})
}

// Me godoc
// @Summary Current session, with the household for household users
// @Router /api/v1/me [get]
func (h *Handler) Me(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	resp := gin.H{"session": s, "dashboard": s.Role.Dashboard()}
	if s.Role == domain.RoleHousehold && s.HouseholdID != nil {
		hh, err := h.store.GetHousehold(c.Request.Context(), *s.HouseholdID)
		if err != nil {
			respondError(c, err, "Failed to load household")
			return
		}
		resp["household"] = hh
	}
	c.JSON(http.StatusOK, resp)
}

type adminRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	FullName string     `json:"full_name" validate:"required,notblank"`
	Password string     `json:"password" validate:"required,min=8"`
	Role     string     `json:"role" validate:"required,oneof=mosque_admin city_admin super_admin"`
	MosqueID *uuid.UUID `json:"mosque_id"`
	City     string     `json:"city"`
}

// CreateAdmin godoc
// @Summary Create a mosque, city or super admin
// @Router /api/v1/admins [post]
func (h *Handler) CreateAdmin(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(c, err, "")
		return
	}
	u, err := accounts.CreateAdmin(c.Request.Context(), h.store, accounts.AdminInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Role:     domain.Role(req.Role),
		MosqueID: req.MosqueID,
		City:     req.City,
	})
	if err != nil {
		respondError(c, err, "Failed to create admin")
		return
	}
	slog.Info("Admin created", "user_id", u.ID, "role", u.Role, "by", s.UserID)
	c.JSON(http.StatusCreated, u)
}

// Stats godoc
// @Summary Collection statistics for a scope the caller may see
// @Param level query string false "mosque | city | state | national"
// @Param key query string false "Mosque id, city or state"
// @Param year query int false "Year"
// @Router /api/v1/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	year := h.now().Year()
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year is invalid"})
			return
		}
		year = y
	}

	scope, ok := s.DefaultScope()
	if lvl := c.Query("level"); lvl != "" {
		scope = domain.StatsScope{Level: domain.StatsLevel(lvl), Key: c.Query("key")}
		ok = scope.Level.IsValid()
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "level must be mosque, city, state or national"})
		return
	}

	var mosque *domain.Mosque
	if scope.Level == domain.LevelMosque {
		id, err := uuid.Parse(scope.Key)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "key must be a mosque id"})
			return
		}
		if mosque, err = h.store.GetMosque(c.Request.Context(), id); err != nil {
			respondError(c, err, "Failed to load mosque")
			return
		}
	}
	if !s.CanViewScope(scope, mosque) {
		respondError(c, domain.ErrForbidden, "")
		return
	}

	st, err := h.store.CollectionStats(c.Request.Context(), scope, year)
	if err != nil {
		respondError(c, err, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": st, "outstanding": st.Outstanding()})
}
