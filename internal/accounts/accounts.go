// Package accounts holds login, signup and admin creation rules shared by
// the HTTP API and masjidctl.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"masjid-collection/internal/auth"
	"masjid-collection/internal/domain"
	"masjid-collection/internal/storage"

	"github.com/google/uuid"
)

type Store interface {
	storage.UserStorage
	storage.MosqueStorage
	storage.RegistrationStorage
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Login checks credentials. Unknown emails and wrong passwords give the same error.
func Login(ctx context.Context, store storage.UserStorage, email, password string) (domain.User, error) {
	u, err := store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, auth.ErrBadCredentials
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return domain.User{}, err
	}
	return *u, nil
}

type AdminInput struct {
	Email    string
	FullName string
	Password string
	Role     domain.Role
	MosqueID *uuid.UUID
	City     string
}

// CreateAdmin creates a mosque, city or super admin.
func CreateAdmin(ctx context.Context, store Store, in AdminInput) (domain.User, error) {
	u := domain.User{
		Email:    normalizeEmail(in.Email),
		FullName: strings.TrimSpace(in.FullName),
		Role:     in.Role,
	}
	switch in.Role {
	case domain.RoleMosqueAdmin:
		if in.MosqueID == nil {
			return domain.User{}, fmt.Errorf("%w: mosque_id is required for a mosque admin", domain.ErrInvalidInput)
		}
		m, err := store.GetMosque(ctx, *in.MosqueID)
		if err != nil {
			return domain.User{}, fmt.Errorf("get mosque: %w", err)
		}
		u.MosqueID = &m.ID
		u.City = m.City
	case domain.RoleCityAdmin:
		if strings.TrimSpace(in.City) == "" {
			return domain.User{}, fmt.Errorf("%w: city is required for a city admin", domain.ErrInvalidInput)
		}
		u.City = strings.TrimSpace(in.City)
	case domain.RoleSuperAdmin:
	case domain.RoleHousehold:
		return domain.User{}, fmt.Errorf("%w: households sign up through registration", domain.ErrInvalidInput)
	default:
		return domain.User{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, in.Role)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	u.PasswordHash = hash
	return store.CreateUser(ctx, u)
}

type SignupInput struct {
	MosqueID  uuid.UUID
	Email     string
	FullName  string
	Password  string
	Household domain.Household
}

// Register files a pending household registration for the mosque admin.
func Register(ctx context.Context, store Store, in SignupInput, now time.Time) (domain.HouseholdRegistration, error) {
	if _, err := store.GetMosque(ctx, in.MosqueID); err != nil {
		return domain.HouseholdRegistration{}, fmt.Errorf("get mosque: %w", err)
	}
	email := normalizeEmail(in.Email)
	if _, err := store.GetUserByEmail(ctx, email); err == nil {
		return domain.HouseholdRegistration{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.HouseholdRegistration{}, fmt.Errorf("get user: %w", err)
	}

	hh := in.Household
	if hh.AnnualAmount < 0 || hh.MaleMembers+hh.FemaleMembers > hh.TotalMembers {
		return domain.HouseholdRegistration{}, fmt.Errorf("%w: inconsistent household details", domain.ErrInvalidInput)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.HouseholdRegistration{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	hh.MosqueID = in.MosqueID
	return store.CreateRegistration(ctx, domain.HouseholdRegistration{
		MosqueID:     in.MosqueID,
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
		Household:    hh,
		Status:       domain.RegistrationPending,
		CreatedAt:    now,
	})
}
