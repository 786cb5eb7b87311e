package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"masjid-collection/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubParser map[string]domain.Session

func (p stubParser) ParseToken(tok string) (domain.Session, error) {
	s, ok := p[tok]
	if !ok {
		return domain.Session{}, errors.New("bad token")
	}
	return s, nil
}

func newRouter(p stubParser) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mw := NewAuthMiddleware(p)
	r.GET("/me", mw.RequireAuth(), func(c *gin.Context) {
		s, _ := Session(c)
		c.JSON(http.StatusOK, gin.H{"role": s.Role})
	})
	r.GET("/admin", mw.RequireAuth(), RequireRole(domain.RoleMosqueAdmin, domain.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	r := newRouter(stubParser{
		"household": {UserID: uuid.New(), Role: domain.RoleHousehold},
		"admin":     {UserID: uuid.New(), Role: domain.RoleMosqueAdmin},
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"not bearer", "/me", "Basic abc", http.StatusUnauthorized},
		{"unknown token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"ok", "/me", "Bearer household", http.StatusOK},
		{"role denied", "/admin", "Bearer household", http.StatusForbidden},
		{"role allowed", "/admin", "Bearer admin", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
