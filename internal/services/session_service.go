package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"feedbackapp/internal/config"
	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/store"
	contextutils "feedbackapp/internal/utils"
)

// defaultIdentityBaseURL is the production Identity Toolkit endpoint.
const defaultIdentityBaseURL = "https://identitytoolkit.googleapis.com/v1"

// SessionService authenticates users against the Identity Toolkit REST API
// and resolves their role from the user collection. Every provider failure
// maps to a user-presentable AppError: no raw provider error code ever
// reaches a response.
type SessionService struct {
	cfg       *config.IdentityConfig
	userStore store.UserStore
	client    *http.Client
	logger    *observability.Logger
}

// NewSessionService creates the session service.
func NewSessionService(cfg *config.IdentityConfig, userStore store.UserStore, logger *observability.Logger) *SessionService {
	if cfg == nil {
		panic("NewSessionService: config is nil")
	}
	if userStore == nil {
		panic("NewSessionService: user store is nil")
	}
	if logger == nil {
		panic("NewSessionService: logger is nil")
	}
	return &SessionService{
		cfg:       cfg,
		userStore: userStore,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   config.IdentityHTTPTimeout,
		},
		logger: logger,
	}
}

// identityResponse is the subset of the Identity Toolkit response we use.
type identityResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

// identityError is the Identity Toolkit error envelope.
type identityError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn authenticates email/password credentials and returns the resolved
// user together with the provider ID token.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (user *models.User, idToken string, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "sign_in")
	defer observability.FinishSpan(span, &err)

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", contextutils.WrapError(contextutils.ErrMissingRequired, "email and password are required")
	}

	resp, err := s.identityCall(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, "", err
	}

	user, err = s.resolveUser(ctx, resp)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info(ctx, "User signed in", map[string]interface{}{
		"user_uid": user.UID,
	})
	span.SetAttributes(attribute.String("user.uid", user.UID))
	return user, resp.IDToken, nil
}

// Register creates a new account, sets its display name, and bootstraps the
// user document with the default role.
func (s *SessionService) Register(ctx context.Context, email, password, displayName string) (user *models.User, idToken string, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "register")
	defer observability.FinishSpan(span, &err)

	if s.cfg.SignupsDisabled {
		return nil, "", contextutils.WrapError(contextutils.ErrForbidden, "new registrations are disabled")
	}

	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	if email == "" || password == "" || displayName == "" {
		return nil, "", contextutils.WrapError(contextutils.ErrMissingRequired, "name, email and password are required")
	}
	if !contextutils.IsValidEmail(email) {
		return nil, "", contextutils.WrapError(contextutils.ErrInvalidInput, "email address is malformed")
	}

	resp, err := s.identityCall(ctx, "accounts:signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, "", err
	}

	// The signUp endpoint does not accept a display name; set it in a
	// follow-up profile update.
	if _, err := s.identityCall(ctx, "accounts:update", map[string]interface{}{
		"idToken":           resp.IDToken,
		"displayName":       displayName,
		"returnSecureToken": false,
	}); err != nil {
		s.logger.Warn(ctx, "Failed to set display name after registration", map[string]interface{}{
			"user_uid": resp.LocalID,
			"error":    err.Error(),
		})
	}

	user = &models.User{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: displayName,
		Role:        models.RoleUser,
	}
	if err := s.userStore.PutUser(ctx, user); err != nil {
		// The account exists either way; the role lookup falls back to the
		// default role until the document is written.
		s.logger.Warn(ctx, "Failed to bootstrap user document", map[string]interface{}{
			"user_uid": user.UID,
			"error":    err.Error(),
		})
	}

	s.logger.Info(ctx, "User registered", map[string]interface{}{
		"user_uid": user.UID,
	})
	return user, resp.IDToken, nil
}

// ResolveRole returns the stored role for uid. A missing user document
// means the default role, not an error.
func (s *SessionService) ResolveRole(ctx context.Context, uid string) (role models.UserRole, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "resolve_role",
		attribute.String("user.uid", uid))
	defer observability.FinishSpan(span, &err)

	u, err := s.userStore.GetUser(ctx, uid)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return models.RoleUser, nil
		}
		return "", err
	}
	return u.Role, nil
}

// resolveUser builds the session user from the provider response and the
// stored role.
func (s *SessionService) resolveUser(ctx context.Context, resp *identityResponse) (*models.User, error) {
	role, err := s.ResolveRole(ctx, resp.LocalID)
	if err != nil {
		return nil, err
	}
	return &models.User{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		Role:        role,
	}, nil
}

// identityCall performs one Identity Toolkit REST call and decodes the
// response, translating every failure mode into an AppError.
func (s *SessionService) identityCall(ctx context.Context, endpoint string, payload map[string]interface{}) (*identityResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to encode identity request")
	}

	url := fmt.Sprintf("%s/%s?key=%s", s.baseURL(), endpoint, s.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to build identity request")
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, contextutils.WrapError(contextutils.ErrTimeout, "identity provider timed out")
		}
		return nil, contextutils.WrapError(contextutils.ErrServiceUnavailable, "identity provider unreachable")
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrServiceUnavailable, "failed to read identity response")
	}

	if httpResp.StatusCode != http.StatusOK {
		var ie identityError
		// A non-JSON error body still maps to the generic fallback below.
		_ = json.Unmarshal(data, &ie)
		return nil, s.mapIdentityError(ctx, ie.Error.Message)
	}

	var resp identityResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, contextutils.WrapError(contextutils.ErrServiceUnavailable, "malformed identity response")
	}
	return &resp, nil
}

func (s *SessionService) baseURL() string {
	if s.cfg.BaseURL != "" {
		return strings.TrimSuffix(s.cfg.BaseURL, "/")
	}
	return defaultIdentityBaseURL
}

// mapIdentityError translates provider error codes into presentable
// AppErrors. The mapping is total: unknown codes get a generic message, so
// no provider internals leak to users.
func (s *SessionService) mapIdentityError(ctx context.Context, code string) error {
	// Some codes arrive with a trailing reason, e.g.
	// "TOO_MANY_ATTEMPTS_TRY_LATER : ...". Match on the prefix.
	normalized := code
	if idx := strings.IndexAny(code, " :"); idx > 0 {
		normalized = code[:idx]
	}

	switch normalized {
	case "EMAIL_NOT_FOUND":
		return contextutils.NewAppError(
			contextutils.ErrorCodeInvalidCredentials, contextutils.SeverityWarn,
			"User not found", "no account exists for this email address")
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return contextutils.WrapError(contextutils.ErrInvalidCredentials, "email or password is incorrect")
	case "INVALID_EMAIL":
		return contextutils.WrapError(contextutils.ErrInvalidInput, "email address is malformed")
	case "USER_DISABLED":
		return contextutils.WrapError(contextutils.ErrAccountDisabled, "this account has been disabled")
	case "EMAIL_EXISTS":
		return contextutils.WrapError(contextutils.ErrInvalidInput, "an account already exists for this email address")
	case "WEAK_PASSWORD":
		return contextutils.WrapError(contextutils.ErrInvalidInput, "password must be at least 6 characters")
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return contextutils.WrapError(contextutils.ErrRateLimit, "too many attempts, try again later")
	case "OPERATION_NOT_ALLOWED":
		return contextutils.WrapError(contextutils.ErrForbidden, "password sign-in is not enabled")
	default:
		s.logger.Warn(ctx, "Unmapped identity provider error", map[string]interface{}{
			"provider_code": normalized,
		})
		return contextutils.WrapError(contextutils.ErrInvalidCredentials, "sign-in failed, check your credentials")
	}
}
