// internal/middleware/auth.go
package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"masjid-collection/internal/domain"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// TokenParser is implemented by auth.TokenService.
type TokenParser interface {
	ParseToken(tokenStr string) (domain.Session, error)
}

type AuthMiddleware struct {
	tokens TokenParser
}

func NewAuthMiddleware(tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format"})
			return
		}

		session, err := m.tokens.ParseToken(tokenStr)
		if err != nil {
			slog.Debug("Token rejected", "error", err, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := Session(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !slices.Contains(roles, s.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// Session returns the caller stored by RequireAuth.
func Session(c *gin.Context) (domain.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return domain.Session{}, false
	}
	s, ok := v.(domain.Session)
	return s, ok
}

// SetSession is used by tests and by handlers that authenticate on their own.
func SetSession(c *gin.Context, s domain.Session) { c.Set(sessionKey, s) }
