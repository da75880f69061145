package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feedbackapp/internal/config"
	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/services"
	"feedbackapp/internal/store"
)

// testEnv bundles a running router with its fake store and the identity
// stub behind it.
type testEnv struct {
	router *gin.Engine
	fake   *store.Fake
	cache  *services.FeedbackCache
	cancel context.CancelFunc
}

func testLogger() *observability.Logger {
	return &observability.Logger{Logger: zap.NewNop()}
}

// identityStub signs in any credentials, deriving the UID from the email
// local part.
func identityStub(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		uid := strings.SplitN(req.Email, "@", 2)[0]
		display := uid
		if display != "" {
			display = strings.ToUpper(display[:1]) + display[1:]
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"localId":     uid,
			"email":       req.Email,
			"displayName": display,
			"idToken":     "token-" + uid,
		})
	}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	idp := identityStub(t)
	t.Cleanup(idp.Close)

	cfg := &config.Config{IsTest: true}
	cfg.Server.Port = "0"
	cfg.Server.SessionSecret = "test-secret"
	cfg.Server.Debug = true
	cfg.Server.DefaultPageSize = config.DefaultPageSize
	cfg.Server.MaxPageSize = config.MaxPageSize
	cfg.Identity.APIKey = "test-key"
	cfg.Identity.BaseURL = idp.URL

	logger := testLogger()
	fake := store.NewFake()
	require.NoError(t, fake.PutUser(context.Background(), &models.User{
		UID: "admin", Email: "admin@example.com", DisplayName: "Admin", Role: models.RoleAdmin,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cache := services.NewFeedbackCache(fake, store.SubscribeOptions{}, logger)
	require.NoError(t, cache.Start(ctx))
	require.Eventually(t, func() bool { return !cache.Loading() }, time.Second, 5*time.Millisecond)

	feedbackService := services.NewFeedbackService(fake, cache, nil, logger)
	exportService := services.NewExportService(logger)
	sessionService := services.NewSessionService(&cfg.Identity, fake, logger)

	router := NewRouter(cfg, cache, feedbackService, exportService, sessionService, nil, logger)

	return &testEnv{router: router, fake: fake, cache: cache, cancel: cancel}
}

// login signs in through the real login endpoint and returns the session
// cookies.
func (e *testEnv) login(t *testing.T, email string) []*http.Cookie {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":"secret1"}`, email)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	return w.Result().Cookies()
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// waitCount blocks until the cache has absorbed n entries.
func (e *testEnv) waitCount(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(e.cache.All()) == n }, time.Second, 5*time.Millisecond)
}

func TestNewRouter_NoCORSOriginsConfigured(t *testing.T) {
	// The test config leaves CORSOrigins empty, so building the router at
	// all proves the fallback: cors.New panics when every origin is
	// disabled. Preflight from the default dev origin must be allowed.
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubmitFeedback_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t, "alice@example.com")

	w := env.do(t, http.MethodPost, "/v1/feedbacks", `{"rating":5,"comment":"works really well"}`, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	doc, ok := env.fake.Doc(resp.ID)
	require.True(t, ok)
	assert.Equal(t, "alice", doc[store.FieldUserID])
	assert.Equal(t, "novo", doc[store.FieldStatus])
}

func TestSubmitFeedback_ShortCommentRejected(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t, "alice@example.com")

	w := env.do(t, http.MethodPost, "/v1/feedbacks", `{"rating":5,"comment":"short"}`, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, env.fake.Len())
}

func TestSubmitFeedback_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/feedbacks", `{"rating":5,"comment":"works really well"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListFeedbacks_AdminOnly(t *testing.T) {
	env := newTestEnv(t)

	userCookies := env.login(t, "alice@example.com")
	w := env.do(t, http.MethodGet, "/v1/admin/feedbacks", "", userCookies)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminCookies := env.login(t, "admin@example.com")
	w = env.do(t, http.MethodGet, "/v1/admin/feedbacks", "", adminCookies)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListFeedbacks_FiltersMetricsAndPagination(t *testing.T) {
	env := newTestEnv(t)
	base := time.Now()
	for i := 0; i < 12; i++ {
		env.fake.SeedFeedback(map[string]interface{}{
			store.FieldUserID:    fmt.Sprintf("user-%d", i%3),
			store.FieldUser:      map[string]interface{}{store.FieldUserName: "User", store.FieldUserEmail: "user@example.com"},
			store.FieldRating:    i%5 + 1,
			store.FieldComment:   fmt.Sprintf("comment number %d", i),
			store.FieldStatus:    "novo",
			store.FieldCreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	env.waitCount(t, 12)

	cookies := env.login(t, "admin@example.com")
	w := env.do(t, http.MethodGet, "/v1/admin/feedbacks?page=2&page_size=10", "", cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Loading    bool              `json:"loading"`
		Items      []models.Feedback `json:"items"`
		Pagination services.PageInfo `json:"pagination"`
		Metrics    models.FeedbackMetrics
		Filters    struct {
			ActiveCount int `json:"active_count"`
		} `json:"filters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.False(t, resp.Loading)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 2, resp.Pagination.PageCount)
	assert.Equal(t, 12, resp.Pagination.TotalItems)
	assert.Equal(t, 0, resp.Filters.ActiveCount)
}

func TestStatusTransitions_OverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.fake.SeedFeedback(map[string]interface{}{
		store.FieldUserID:    "alice",
		store.FieldStatus:    "novo",
		store.FieldCreatedAt: time.Now(),
	})
	env.waitCount(t, 1)

	cookies := env.login(t, "admin@example.com")

	w := env.do(t, http.MethodPost, "/v1/admin/feedbacks/"+id+"/read", "", cookies)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	// Wait for the snapshot to flow back before the next transition check.
	require.Eventually(t, func() bool {
		fb, ok := env.cache.Get(id)
		return ok && fb.Status == models.StatusRead
	}, time.Second, 5*time.Millisecond)

	// read -> read is forbidden.
	w = env.do(t, http.MethodPost, "/v1/admin/feedbacks/"+id+"/read", "", cookies)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/v1/admin/feedbacks/"+id+"/respond", `{"text":"thanks for the report"}`, cookies)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	doc, _ := env.fake.Doc(id)
	assert.Equal(t, "respondido", doc[store.FieldStatus])
	resp := doc[store.FieldResponse].(map[string]interface{})
	assert.Equal(t, "thanks for the report", resp[store.FieldResponseText])
	assert.Equal(t, "Admin", resp[store.FieldRespondedBy])
}

func TestDeleteFeedback_UnknownIDIs404(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t, "admin@example.com")

	w := env.do(t, http.MethodDelete, "/v1/admin/feedbacks/missing", "", cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMyFeedbacks_OnlyOwnEntries(t *testing.T) {
	env := newTestEnv(t)
	env.fake.SeedFeedback(map[string]interface{}{
		store.FieldUserID: "alice", store.FieldStatus: "novo", store.FieldCreatedAt: time.Now(),
	})
	env.fake.SeedFeedback(map[string]interface{}{
		store.FieldUserID: "bob", store.FieldStatus: "novo", store.FieldCreatedAt: time.Now(),
	})
	env.waitCount(t, 2)

	cookies := env.login(t, "alice@example.com")
	w := env.do(t, http.MethodGet, "/v1/feedbacks/mine", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []models.Feedback `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "alice", resp.Items[0].SubmitterID)
}

func TestExportFeedbacks_CSVAttachment(t *testing.T) {
	env := newTestEnv(t)
	env.fake.SeedFeedback(map[string]interface{}{
		store.FieldUserID:    "alice",
		store.FieldRating:    5,
		store.FieldComment:   "exported entry",
		store.FieldStatus:    "novo",
		store.FieldCreatedAt: time.Now(),
	})
	env.waitCount(t, 1)

	cookies := env.login(t, "admin@example.com")
	w := env.do(t, http.MethodGet, "/v1/admin/feedbacks/export?format=csv", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "exported entry")
}

func TestExportFeedbacks_UnknownFormatRejected(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t, "admin@example.com")

	w := env.do(t, http.MethodGet, "/v1/admin/feedbacks/export?format=xml", "", cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
