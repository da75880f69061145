package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"feedbackapp/internal/config"
	"feedbackapp/internal/middleware"
	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/services"
	contextutils "feedbackapp/internal/utils"
)

// AuthHandler handles login, logout, registration and session status.
type AuthHandler struct {
	sessions *services.SessionService
	cfg      *config.Config
	logger   *observability.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(sessionService *services.SessionService, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessionService,
		cfg:      cfg,
		logger:   logger,
	}
}

// LoginRequest represents a POST /v1/auth/login request.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents a POST /v1/auth/register request.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// userResponse is the session user as returned to clients.
func userResponse(user *models.User) gin.H {
	return gin.H{
		"uid":          user.UID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"role":         string(user.Role),
		"is_admin":     user.IsAdmin(),
	}
}

// storeSessionUser writes the authenticated user into the cookie session.
func storeSessionUser(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Set(middleware.UserUIDKey, user.UID)
	session.Set(middleware.UserEmailKey, user.Email)
	session.Set(middleware.UserNameKey, user.DisplayName)
	session.Set(middleware.UserRoleKey, string(user.Role))
	return session.Save()
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	user, _, err := h.sessions.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.Warn(ctx, "Login failed", map[string]interface{}{
			"error": err.Error(),
		})
		HandleAppError(c, err)
		return
	}

	if err := storeSessionUser(c, user); err != nil {
		h.logger.Error(ctx, "Failed to save session", err, nil)
		HandleAppError(c, contextutils.ErrInternalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

// Register handles POST /v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "register")
	defer observability.FinishSpan(span, nil)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	user, _, err := h.sessions.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		h.logger.Warn(ctx, "Registration failed", map[string]interface{}{
			"error": err.Error(),
		})
		HandleAppError(c, err)
		return
	}

	if err := storeSessionUser(c, user); err != nil {
		h.logger.Error(ctx, "Failed to save session", err, nil)
		HandleAppError(c, contextutils.ErrInternalError)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": userResponse(user)})
}

// Logout handles POST /v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: config.SessionPath, MaxAge: -1})
	if err := session.Save(); err != nil {
		HandleAppError(c, contextutils.ErrInternalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// Status handles GET /v1/auth/status. It never fails: an anonymous caller
// gets authenticated=false, not an error.
func (h *AuthHandler) Status(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "auth_status")
	defer observability.FinishSpan(span, nil)

	session := sessions.Default(c)
	uid, ok := session.Get(middleware.UserUIDKey).(string)
	if !ok || uid == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	role := models.RoleUser
	if r, ok := session.Get(middleware.UserRoleKey).(string); ok && r != "" {
		role = models.UserRole(r)
	}

	user := &models.User{UID: uid, Role: role}
	if email, ok := session.Get(middleware.UserEmailKey).(string); ok {
		user.Email = email
	}
	if name, ok := session.Get(middleware.UserNameKey).(string); ok {
		user.DisplayName = name
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          userResponse(user),
	})
}

// SignupStatus handles GET /v1/auth/register/status.
func (h *AuthHandler) SignupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"signups_disabled": h.cfg.Identity.SignupsDisabled,
	})
}
