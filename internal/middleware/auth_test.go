package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedbackapp/internal/models"
)

type stubVerifier struct {
	uid string
}

func (v stubVerifier) VerifyIDToken(_ context.Context, token string) (string, error) {
	if token == "good-token" {
		return v.uid, nil
	}
	return "", assert.AnError
}

type stubResolver map[string]models.UserRole

func (r stubResolver) ResolveRole(_ context.Context, uid string) (models.UserRole, error) {
	if role, ok := r[uid]; ok {
		return role, nil
	}
	return models.RoleUser, nil
}

// newAuthRouter wires the session middleware plus a login helper endpoint
// that seeds the session the way the auth handler does.
func newAuthRouter(verifier stubVerifier, resolver stubResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("test-session", store))

	r.POST("/seed", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(UserUIDKey, c.Query("uid"))
		s.Set(UserRoleKey, c.Query("role"))
		_ = s.Save()
		c.Status(http.StatusOK)
	})

	r.GET("/private", RequireAuth(verifier), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserUIDKey))
	})
	r.GET("/admin", RequireAuth(verifier), RequireAdmin(resolver), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return r
}

func seedSession(t *testing.T, r *gin.Engine, uid, role string) []*http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/seed?uid="+uid+"&role="+role, nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func TestRequireAuth_SessionPath(t *testing.T) {
	r := newAuthRouter(stubVerifier{}, stubResolver{})
	cookies := seedSession(t, r, "u1", "user")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}

func TestRequireAuth_AnonymousRejected(t *testing.T) {
	r := newAuthRouter(stubVerifier{}, stubResolver{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_BearerFallback(t *testing.T) {
	r := newAuthRouter(stubVerifier{uid: "api-user"}, stubResolver{})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "api-user", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin_SessionRoleTrusted(t *testing.T) {
	r := newAuthRouter(stubVerifier{}, stubResolver{})
	cookies := seedSession(t, r, "boss", "admin")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdmin_NonAdminForbidden(t *testing.T) {
	r := newAuthRouter(stubVerifier{}, stubResolver{})
	cookies := seedSession(t, r, "u1", "user")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdmin_BearerCallerResolvedFromStore(t *testing.T) {
	r := newAuthRouter(stubVerifier{uid: "api-admin"}, stubResolver{"api-admin": models.RoleAdmin})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
