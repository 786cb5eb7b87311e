// internal/auth/jwt.go
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"masjid-collection/internal/config"
	"masjid-collection/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carry the whole session so requests need no user lookup.
type Claims struct {
	Role        domain.Role `json:"role"`
	MosqueID    *uuid.UUID  `json:"mosque_id,omitempty"`
	HouseholdID *uuid.UUID  `json:"household_id,omitempty"`
	City        string      `json:"city,omitempty"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secretKey []byte
	expiresIn time.Duration
	now       func() time.Time
}

func NewTokenService(cfg config.Config) *TokenService {
	return &TokenService{
		secretKey: []byte(cfg.JWTSecret),
		expiresIn: cfg.JWTExpiresIn,
		now:       time.Now,
	}
}

// Генерация токена
func (s *TokenService) GenerateToken(u domain.User) (string, time.Time, error) {
	now := s.now()
	expTime := now.Add(s.expiresIn)
	claims := Claims{
		Role:        u.Role,
		MosqueID:    u.MosqueID,
		HouseholdID: u.HouseholdID,
		City:        u.City,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	slog.Info("JWT generated", "user_id", u.ID, "role", u.Role, "expires_at", expTime.Format("2006-01-02 15:04:05"))
	return tokenStr, expTime, nil
}

// Парсинг токена
func (s *TokenService) ParseToken(tokenStr string) (domain.Session, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if _, err := domain.ParseRole(string(claims.Role)); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	slog.Debug("JWT parsed successfully", "user_id", userID)
	return domain.Session{
		UserID:      userID,
		Role:        claims.Role,
		MosqueID:    claims.MosqueID,
		HouseholdID: claims.HouseholdID,
		City:        claims.City,
	}, nil
}
