package handlers

import (
	"github.com/gin-gonic/gin"

	"feedbackapp/internal/middleware"
	"feedbackapp/internal/models"
)

// GetUserFromSession rebuilds the session user from the values the auth
// middleware stored in the Gin context. Returns (zero, false) when the
// caller is not authenticated.
func GetUserFromSession(c *gin.Context) (models.User, bool) {
	uid := c.GetString(middleware.UserUIDKey)
	if uid == "" {
		return models.User{}, false
	}

	role := models.UserRole(c.GetString(middleware.UserRoleKey))
	if role == "" {
		role = models.RoleUser
	}

	return models.User{
		UID:         uid,
		Email:       c.GetString(middleware.UserEmailKey),
		DisplayName: c.GetString(middleware.UserNameKey),
		Role:        role,
	}, true
}
