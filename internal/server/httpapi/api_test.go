package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/ticketdesk/internal/common"
	"github.com/dmitrijs2005/ticketdesk/internal/logging"
	"github.com/dmitrijs2005/ticketdesk/internal/server/auth"
	"github.com/dmitrijs2005/ticketdesk/internal/server/metrics"
	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ticketdesk/internal/server/services"
	"github.com/dmitrijs2005/ticketdesk/internal/server/tokenstore"
)

const refreshMaxAge = 30 * 24 * 60 * 60

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testEnv struct {
	router *gin.Engine
	svc    *services.SessionService
	ping   error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := repomanager.NewInMemoryRepositoryManager()
	store := tokenstore.New(repos, tokenstore.Options{TTL: 30 * 24 * time.Hour, Cost: bcrypt.MinCost}, logging.Nop{})
	codec := auth.NewCodec([]byte("http-test-secret"), 15*time.Minute)
	svc, err := services.NewSessionService(repos.Users(nil), store, codec, bcrypt.MinCost, logging.Nop{})
	require.NoError(t, err)

	env := &testEnv{svc: svc}
	cookies := NewCookieHelper(CookieConfig{Path: "/api/v1/auth", MaxAge: refreshMaxAge})
	api := New(svc, cookies, pingFunc(func(context.Context) error { return env.ping }), metrics.New(), logging.Nop{})
	env.router = api.Router()

	return env
}

type call struct {
	method string
	path   string
	body   any
	cookie *http.Cookie
	bearer string
}

func (e *testEnv) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == common.RefreshTokenCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", common.RefreshTokenCookieName)
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func (e *testEnv) login(t *testing.T, email, password string) (string, *http.Cookie) {
	t.Helper()
	w := e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/login", body: loginRequest{Email: email, Password: password}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[tokenResponse](t, w).AccessToken, refreshCookie(t, w)
}

func TestRegister(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/register", body: registerRequest{
		Email: "ann@example.com", Password: "password123", Name: "Ann",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode[map[string]any](t, w)
	assert.NotEmpty(t, body["access_token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ann@example.com", user["email"])
	assert.Equal(t, "USER", user["role"])
	assert.NotContains(t, user, "pass_hash")
	assert.NotContains(t, user, "PassHash")

	c := refreshCookie(t, w)
	assert.NotEmpty(t, c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/api/v1/auth", c.Path)
	assert.Equal(t, refreshMaxAge, c.MaxAge)

	w = e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/register", body: registerRequest{
		Email: "ANN@example.com", Password: "password123",
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_BadRequest(t *testing.T) {
	e := newTestEnv(t)

	for _, body := range []any{
		map[string]string{"email": "not-an-email", "password": "password123"},
		map[string]string{"email": "a@x.com", "password": "short"},
		map[string]string{"password": "password123"},
	} {
		w := e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/register", body: body})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
	}
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	_, _, err := e.svc.Register(context.Background(), services.RegisterInput{Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)

	access, c := e.login(t, "A@X.com", "password123")
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, c.Value)

	wrong := e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/login", body: loginRequest{Email: "a@x.com", Password: "nope-nope"}})
	unknown := e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/login", body: loginRequest{Email: "b@x.com", Password: "password123"}})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Empty(t, wrong.Result().Cookies())
}

func TestRefresh(t *testing.T) {
	e := newTestEnv(t)
	_, _, err := e.svc.Register(context.Background(), services.RegisterInput{Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)
	_, first := e.login(t, "a@x.com", "password123")

	w := e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh", cookie: first})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode[tokenResponse](t, w).AccessToken)
	second := refreshCookie(t, w)
	assert.NotEqual(t, first.Value, second.Value)

	w = e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh", cookie: first})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "replayed token")
	assert.Less(t, refreshCookie(t, w).MaxAge, 0, "cookie is cleared")

	w = e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh"})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "no cookie")

	w = e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh", cookie: second})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	_, _, err := e.svc.Register(context.Background(), services.RegisterInput{Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)
	_, c := e.login(t, "a@x.com", "password123")

	for i := 0; i < 2; i++ {
		w := e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/logout", cookie: c})
		require.Equal(t, http.StatusOK, w.Code)
		cleared := refreshCookie(t, w)
		assert.Less(t, cleared.MaxAge, 0)
		assert.Equal(t, "/api/v1/auth", cleared.Path)
	}

	w := e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/logout"})
	assert.Equal(t, http.StatusOK, w.Code, "logout without a cookie still succeeds")

	w = e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh", cookie: c})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutAll(t *testing.T) {
	e := newTestEnv(t)
	_, _, err := e.svc.Register(context.Background(), services.RegisterInput{Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)
	access, _ := e.login(t, "a@x.com", "password123")

	w := e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/logout-all", bearer: access})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"revoked":2}`, w.Body.String())

	w = e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/logout-all"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	e := newTestEnv(t)
	_, _, err := e.svc.Register(context.Background(), services.RegisterInput{Email: "a@x.com", Password: "password123", Name: "A"})
	require.NoError(t, err)
	access, _ := e.login(t, "a@x.com", "password123")

	w := e.do(t, call{method: http.MethodGet, path: "/api/v1/auth/me", bearer: access})
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[services.Profile](t, w)
	assert.Equal(t, "a@x.com", p.Email)
	assert.Equal(t, "A", p.Name)

	for _, h := range []string{"", "Bearer", "Basic " + access, "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		if h != "" {
			req.Header.Set("Authorization", h)
		}
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", h)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "bearer "+access)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "scheme is case-insensitive")
}

func TestAdminRoute(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, user, err := e.svc.Register(ctx, services.RegisterInput{Email: "user@x.com", Password: "password123"})
	require.NoError(t, err)
	_, err = e.svc.CreateUser(ctx, services.RegisterInput{Email: "admin@x.com", Password: "password123"}, models.RoleAdmin)
	require.NoError(t, err)

	userAccess, _ := e.login(t, "user@x.com", "password123")
	adminAccess, _ := e.login(t, "admin@x.com", "password123")

	w := e.do(t, call{method: http.MethodGet, path: "/api/v1/admin/users/" + user.ID, bearer: userAccess})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, call{method: http.MethodGet, path: "/api/v1/admin/users/" + user.ID, bearer: adminAccess})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID, decode[services.Profile](t, w).ID)

	w = e.do(t, call{method: http.MethodGet, path: "/api/v1/admin/users/missing", bearer: adminAccess})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)

	e.ping = errors.New("db down")
	w = e.do(t, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/login", body: loginRequest{Email: "a@x.com", Password: "password123"}})

	w := e.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ticketdesk_auth_attempts_total{operation="login",outcome="rejected"} 1`)
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, error) { return false, nil }
func (denyLimiter) Reset(context.Context, string) error         { return nil }

func TestLogin_Throttled(t *testing.T) {
	e := newTestEnv(t)
	e.svc.WithLimiter(denyLimiter{})

	w := e.do(t, call{method: http.MethodPost, path: "/api/v1/auth/login", body: loginRequest{Email: "a@x.com", Password: "password123"}})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{common.ErrorUnauthorized, http.StatusUnauthorized},
		{common.ErrInvalidToken, http.StatusUnauthorized},
		{common.ErrorForbidden, http.StatusForbidden},
		{common.ErrorNotFound, http.StatusNotFound},
		{common.ErrorAlreadyExists, http.StatusConflict},
		{common.ErrorValidation, http.StatusBadRequest},
		{common.ErrTooManyAttempts, http.StatusTooManyRequests},
		{errors.Join(common.ErrorInternal, errors.New("pq: connection refused")), http.StatusInternalServerError},
		{errors.New("anything"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		code, msg := statusFor(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.NotContains(t, msg, "pq:")
	}
}
