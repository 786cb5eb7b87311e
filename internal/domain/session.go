// internal/domain/session.go
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Session is the authenticated caller, as carried by the access token.
type Session struct {
	UserID      uuid.UUID  `json:"user_id"`
	Role        Role       `json:"role"`
	MosqueID    *uuid.UUID `json:"mosque_id,omitempty"`
	HouseholdID *uuid.UUID `json:"household_id,omitempty"`
	City        string     `json:"city,omitempty"`
}

func SessionFor(u User) Session {
	return Session{UserID: u.ID, Role: u.Role, MosqueID: u.MosqueID, HouseholdID: u.HouseholdID, City: u.City}
}

func sameID(p *uuid.UUID, id uuid.UUID) bool { return p != nil && *p == id }

// CanViewMosque reports whether the caller may read data of mosque m.
func (s Session) CanViewMosque(m Mosque) bool {
	switch s.Role {
	case RoleHousehold, RoleMosqueAdmin:
		return sameID(s.MosqueID, m.ID)
	case RoleCityAdmin:
		return s.City != "" && strings.EqualFold(s.City, m.City)
	case RoleSuperAdmin:
		return true
	}
	return false
}

// CanViewHousehold reports whether the caller may read h, which belongs to m.
func (s Session) CanViewHousehold(h Household, m Mosque) bool {
	switch s.Role {
	case RoleHousehold:
		return sameID(s.HouseholdID, h.ID)
	case RoleMosqueAdmin, RoleCityAdmin, RoleSuperAdmin:
		return h.MosqueID == m.ID && s.CanViewMosque(m)
	}
	return false
}

// CanManageMosque is true only for the admin of that very mosque.
func (s Session) CanManageMosque(mosqueID uuid.UUID) bool {
	return s.Role == RoleMosqueAdmin && sameID(s.MosqueID, mosqueID)
}

// DefaultScope is the statistics scope shown on the role's dashboard.
func (s Session) DefaultScope() (StatsScope, bool) {
	switch s.Role {
	case RoleMosqueAdmin:
		if s.MosqueID == nil {
			return StatsScope{}, false
		}
		return StatsScope{Level: LevelMosque, Key: s.MosqueID.String()}, true
	case RoleCityAdmin:
		return StatsScope{Level: LevelCity, Key: s.City}, true
	case RoleSuperAdmin:
		return StatsScope{Level: LevelNational}, true
	case RoleHousehold:
		return StatsScope{}, false
	}
	return StatsScope{}, false
}

// CanViewScope checks a statistics request. mosque is the resolved mosque
// for LevelMosque scopes and nil otherwise.
func (s Session) CanViewScope(scope StatsScope, mosque *Mosque) bool {
	switch s.Role {
	case RoleSuperAdmin:
		return true
	case RoleCityAdmin:
		switch scope.Level {
		case LevelCity:
			return strings.EqualFold(scope.Key, s.City)
		case LevelMosque:
			return mosque != nil && s.CanViewMosque(*mosque)
		}
		return false
	case RoleMosqueAdmin:
		return scope.Level == LevelMosque && s.MosqueID != nil && scope.Key == s.MosqueID.String()
	case RoleHousehold:
		return false
	}
	return false
}
