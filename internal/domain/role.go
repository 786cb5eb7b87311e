// internal/domain/role.go
package domain

import "fmt"

type Role string

const (
	RoleHousehold   Role = "household"
	RoleMosqueAdmin Role = "mosque_admin"
	RoleCityAdmin   Role = "city_admin"
	RoleSuperAdmin  Role = "super_admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleHousehold, RoleMosqueAdmin, RoleCityAdmin, RoleSuperAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// IsAdmin is true for every role above household.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleMosqueAdmin, RoleCityAdmin, RoleSuperAdmin:
		return true
	case RoleHousehold:
		return false
	}
	return false
}

// Dashboard names the landing view of the role.
func (r Role) Dashboard() string {
	switch r {
	case RoleHousehold:
		return "household"
	case RoleMosqueAdmin:
		return "mosque"
	case RoleCityAdmin:
		return "city"
	case RoleSuperAdmin:
		return "national"
	}
	return ""
}
