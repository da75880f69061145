package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedbackapp/internal/config"
	"feedbackapp/internal/models"
	"feedbackapp/internal/store"
	contextutils "feedbackapp/internal/utils"
)

// identityStub answers Identity Toolkit calls with canned responses per
// error code; an empty code means success.
func identityStub(t *testing.T, errCode string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		if errCode != "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"code": 400, "message": errCode},
			})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"localId":     "uid-1",
			"email":       "alice@example.com",
			"displayName": "Alice",
			"idToken":     "token-1",
		})
	}))
}

func newTestSessionService(baseURL string, fake *store.Fake) *SessionService {
	cfg := &config.IdentityConfig{APIKey: "test-key", BaseURL: baseURL}
	return NewSessionService(cfg, fake, testLogger())
}

func TestSignIn_Success(t *testing.T) {
	srv := identityStub(t, "")
	defer srv.Close()

	fake := store.NewFake()
	require.NoError(t, fake.PutUser(context.Background(), &models.User{UID: "uid-1", Role: models.RoleAdmin}))

	svc := newTestSessionService(srv.URL, fake)
	user, token, err := svc.SignIn(context.Background(), "alice@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "uid-1", user.UID)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "token-1", token)
}

func TestSignIn_MissingUserDocumentDefaultsToUserRole(t *testing.T) {
	srv := identityStub(t, "")
	defer srv.Close()

	svc := newTestSessionService(srv.URL, store.NewFake())
	user, _, err := svc.SignIn(context.Background(), "alice@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.False(t, user.IsAdmin())
}

func TestSignIn_EmptyCredentialsRejectedLocally(t *testing.T) {
	svc := newTestSessionService("http://127.0.0.1:1", store.NewFake())

	_, _, err := svc.SignIn(context.Background(), "", "")
	assert.True(t, contextutils.IsError(err, contextutils.ErrMissingRequired))
}

func TestSignIn_ErrorMappingIsTotal(t *testing.T) {
	tests := []struct {
		providerCode string
		wantCode     contextutils.ErrorCode
	}{
		{"EMAIL_NOT_FOUND", contextutils.ErrorCodeInvalidCredentials},
		{"INVALID_PASSWORD", contextutils.ErrorCodeInvalidCredentials},
		{"INVALID_LOGIN_CREDENTIALS", contextutils.ErrorCodeInvalidCredentials},
		{"INVALID_EMAIL", contextutils.ErrorCodeInvalidInput},
		{"USER_DISABLED", contextutils.ErrorCodeAccountDisabled},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access blocked.", contextutils.ErrorCodeRateLimit},
		{"SOME_FUTURE_PROVIDER_CODE", contextutils.ErrorCodeInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.providerCode, func(t *testing.T) {
			srv := identityStub(t, tt.providerCode)
			defer srv.Close()

			svc := newTestSessionService(srv.URL, store.NewFake())
			_, _, err := svc.SignIn(context.Background(), "alice@example.com", "secret")

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, contextutils.GetErrorCode(err))
		})
	}
}

func TestSignIn_UnreachableProviderIsServiceUnavailable(t *testing.T) {
	svc := newTestSessionService("http://127.0.0.1:1", store.NewFake())

	_, _, err := svc.SignIn(context.Background(), "alice@example.com", "secret")
	assert.Equal(t, contextutils.ErrorCodeServiceUnavailable, contextutils.GetErrorCode(err))
}

func TestRegister_BootstrapsUserDocument(t *testing.T) {
	srv := identityStub(t, "")
	defer srv.Close()

	fake := store.NewFake()
	svc := newTestSessionService(srv.URL, fake)

	user, _, err := svc.Register(context.Background(), "alice@example.com", "secret1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)

	stored, err := fake.GetUser(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, stored.Role)
	assert.Equal(t, "Alice", stored.DisplayName)
}

func TestRegister_SignupsDisabled(t *testing.T) {
	svc := newTestSessionService("http://127.0.0.1:1", store.NewFake())
	svc.cfg.SignupsDisabled = true

	_, _, err := svc.Register(context.Background(), "a@b.c", "secret1", "Alice")
	assert.True(t, contextutils.IsError(err, contextutils.ErrForbidden))
}

func TestRegister_MalformedEmailRejectedLocally(t *testing.T) {
	// Unreachable provider: the malformed address must be rejected before
	// any remote call is made.
	svc := newTestSessionService("http://127.0.0.1:1", store.NewFake())

	_, _, err := svc.Register(context.Background(), "not-an-email", "secret1", "Alice")
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
}

func TestRegister_EmailExistsMapped(t *testing.T) {
	srv := identityStub(t, "EMAIL_EXISTS")
	defer srv.Close()

	svc := newTestSessionService(srv.URL, store.NewFake())
	_, _, err := svc.Register(context.Background(), "a@b.c", "secret1", "Alice")
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
}

func TestResolveRole(t *testing.T) {
	fake := store.NewFake()
	require.NoError(t, fake.PutUser(context.Background(), &models.User{UID: "admin", Role: models.RoleAdmin}))

	svc := newTestSessionService("http://127.0.0.1:1", fake)

	role, err := svc.ResolveRole(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	role, err = svc.ResolveRole(context.Background(), "stranger")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)
}
