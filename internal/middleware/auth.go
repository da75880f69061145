// Package middleware provides authentication, authorization, and request
// validation middleware for the Gin web framework.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"feedbackapp/internal/models"
	"feedbackapp/internal/services"
)

// Session keys for storing user information
const (
	// UserUIDKey is the key used to store the provider UID in the session
	UserUIDKey = "user_uid"
	// UserEmailKey is the key used to store the user's email in the session
	UserEmailKey = "user_email"
	// UserNameKey is the key used to store the user's display name in the session
	UserNameKey = "user_name"
	// UserRoleKey is the key used to store the user's role in the session
	UserRoleKey = "user_role"
)

// RoleResolver looks up the stored role for a user. Satisfied by the
// session service.
type RoleResolver interface {
	ResolveRole(ctx context.Context, uid string) (models.UserRole, error)
}

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "Authentication required",
		"code":  "UNAUTHORIZED",
	})
	c.Abort()
}

// RequireAuth returns a middleware that requires an authenticated caller.
// Browser sessions carry the identity in the cookie session; API callers
// may present a provider ID token as a bearer credential instead, verified
// through the given verifier (nil disables the bearer path).
func RequireAuth(verifier services.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		if uid, ok := session.Get(UserUIDKey).(string); ok && uid != "" {
			c.Set(UserUIDKey, uid)
			if email, ok := session.Get(UserEmailKey).(string); ok {
				c.Set(UserEmailKey, email)
			}
			if name, ok := session.Get(UserNameKey).(string); ok {
				c.Set(UserNameKey, name)
			}
			if role, ok := session.Get(UserRoleKey).(string); ok {
				c.Set(UserRoleKey, role)
			}
			c.Next()
			return
		}

		// Bearer fallback for non-browser clients.
		authz := c.GetHeader("Authorization")
		if verifier != nil && strings.HasPrefix(authz, "Bearer ") {
			token := strings.TrimPrefix(authz, "Bearer ")
			uid, err := verifier.VerifyIDToken(c.Request.Context(), token)
			if err == nil && uid != "" {
				c.Set(UserUIDKey, uid)
				c.Next()
				return
			}
		}

		abortUnauthorized(c)
	}
}

// RequireAdmin returns a middleware that requires the admin role. It must
// run after RequireAuth. The role from the session is trusted when present;
// bearer callers get a store lookup through the resolver.
func RequireAdmin(resolver RoleResolver) gin.HandlerFunc {
	if resolver == nil {
		panic("RequireAdmin: resolver is nil")
	}

	return func(c *gin.Context) {
		uid := c.GetString(UserUIDKey)
		if uid == "" {
			abortUnauthorized(c)
			return
		}

		role := models.UserRole(c.GetString(UserRoleKey))
		if role == "" {
			resolved, err := resolver.ResolveRole(c.Request.Context(), uid)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to check admin status",
					"code":  "INTERNAL_ERROR",
				})
				c.Abort()
				return
			}
			role = resolved
			c.Set(UserRoleKey, string(role))
		}

		if role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
				"code":  "FORBIDDEN",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
