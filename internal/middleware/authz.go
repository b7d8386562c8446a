package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"salespipeline/internal/authz"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "user_id"
	ContextRoleID = "role_id"
)

// PrincipalFrom returns the caller stored by AuthMiddleware. ok is false on
// routes that were not authenticated.
func PrincipalFrom(c *gin.Context) (p authz.Principal, ok bool) {
	role, hasRole := c.Get(ContextRoleID)
	if !hasRole {
		return authz.Principal{}, false
	}
	user, _ := c.Get(ContextUserID)
	p.UserID, _ = user.(int)
	p.RoleID, _ = role.(int)
	return p, true
}

func forbid(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msg, "kind": "Forbidden"})
}

// RequireRoles lets through only callers whose role is in allowed.
func RequireRoles(allowed ...int) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no role in context"})
			return
		}
		if !slices.Contains(allowed, p.RoleID) {
			forbid(c, "role is not allowed here")
			return
		}
		c.Next()
	}
}

// ReadOnlyGuard rejects every unsafe method for the audit role, so
// auditors can read the whole pipeline but never change it.
func ReadOnlyGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		if !authz.IsReadOnly(p.RoleID) {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			forbid(c, "read-only role")
		}
	}
}
