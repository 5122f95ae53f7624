package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/pdflibrary/internal/entities"
)

// Context keys for session data
const (
	ContextKeyUsername = "auth_username"
	ContextKeyName     = "auth_name"
	ContextKeyRole     = "auth_role"
)

// Middleware exposes the current session to Gin handlers.
type Middleware struct {
	sessions *SessionManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(sessions *SessionManager) *Middleware {
	return &Middleware{sessions: sessions}
}

// Handler copies the caller's session (if still valid) into the Gin context
// and attaches client info to the request context for auditing.
// It must run after SessionLoadSave.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithClientInfo(c.Request.Context(), ClientInfo{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		if sess := m.sessions.Current(ctx); sess != nil {
			c.Set(ContextKeyUsername, sess.Username)
			c.Set(ContextKeyName, sess.Name)
			c.Set(ContextKeyRole, sess.Role)
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid session.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		c.Next()
	}
}

// RequirePremium admits premium and admin sessions.
func (m *Middleware) RequirePremium() gin.HandlerFunc {
	return m.requireRole(entities.RolePremium, entities.RoleAdmin)
}

// RequireAdmin admits admin sessions only.
func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return m.requireRole(entities.RoleAdmin)
}

func (m *Middleware) requireRole(roles ...entities.Role) gin.HandlerFunc {
	roleSet := make(map[entities.Role]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		if !roleSet[GetRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// GetUsername returns the session username, or "" for anonymous requests.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// GetDisplayName returns the session display name.
func GetDisplayName(c *gin.Context) string {
	return c.GetString(ContextKeyName)
}

// GetRole returns the session role, or "" for anonymous requests.
func GetRole(c *gin.Context) entities.Role {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.Role); ok {
			return role
		}
	}
	return ""
}

// IsAuthenticated returns true if the request carries a valid session.
func IsAuthenticated(c *gin.Context) bool {
	return GetUsername(c) != ""
}
