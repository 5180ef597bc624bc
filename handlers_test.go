package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/learnboard/internal/tokens"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	svc, err := tokens.NewService(tokens.Config{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	})
	require.NoError(t, err)
	return &App{
		store:        NewMemoryDB(),
		tokens:       svc,
		loginLimiter: NewLoginLimiter(5, 15*time.Minute),
		analytics:    NewAnalyticsClient(AnalyticsConfig{}),
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:12345"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func signUp(t *testing.T, handler http.Handler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, handler, http.MethodPost, "/api/sign-up", map[string]string{
		"username": "tester",
		"email":    email,
		"password": password,
	}, nil)
}

func TestSignUpThenFetchUser(t *testing.T) {
	app := newTestApp(t)
	handler := app.Routes(nil)

	resp := signUp(t, handler, "a@b.com", "secret123")
	require.Equal(t, http.StatusCreated, resp.Code)

	cookies := resp.Result().Cookies()
	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = true
		require.True(t, c.HttpOnly)
		require.Equal(t, http.SameSiteStrictMode, c.SameSite)
		require.Equal(t, "/", c.Path)
	}
	require.True(t, names[accessCookieName])
	require.True(t, names[refreshCookieName])

	require.NotContains(t, strings.ToLower(resp.Body.String()), "password")

	fetched := doJSON(t, handler, http.MethodGet, "/api/fetch-user", nil, cookies)
	require.Equal(t, http.StatusOK, fetched.Code)

	var out struct {
		User PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(fetched.Body.Bytes(), &out))
	require.Equal(t, "a@b.com", out.User.Email)
	require.NotContains(t, strings.ToLower(fetched.Body.String()), "password")
}

func TestSignUpValidation(t *testing.T) {
	app := newTestApp(t)
	handler := app.Routes(nil)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"username": "u", "password": "secret123"}},
		{"missing password", map[string]string{"username": "u", "email": "a@b.com"}},
		{"missing username", map[string]string{"email": "a@b.com", "password": "secret123"}},
		{"short password", map[string]string{"username": "u", "email": "a@b.com", "password": "abc"}},
		{"malformed email", map[string]string{"username": "u", "email": "not-an-email", "password": "secret123"}},
	}
	for _, tc := range cases {
		resp := doJSON(t, handler, http.MethodPost, "/api/sign-up", tc.body, nil)
		require.Equal(t, http.StatusBadRequest, resp.Code, tc.name)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	handler := app.Routes(nil)

	require.Equal(t, http.StatusCreated, signUp(t, handler, "a@b.com", "secret123").Code)

	resp := signUp(t, handler, "A@B.com", "secret123")
	require.Equal(t, http.StatusBadRequest, resp.Code, "emails are normalized to lowercase before the uniqueness check")

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	require.Equal(t, msgUserExists, apiErr.Message)
}

func TestLoginUniformFailureResponse(t *testing.T) {
	app := newTestApp(t)
	handler := app.Routes(nil)
	require.Equal(t, http.StatusCreated, signUp(t, handler, "a@b.com", "secret123").Code)

	wrongPassword := doJSON(t, handler, http.MethodPost, "/api/log-in",
		map[string]string{"email": "a@b.com", "password": "wrong-pass"}, nil)
	unknownEmail := doJSON(t, handler, http.MethodPost, "/api/log-in",
		map[string]string{"email": "nobody@b.com", "password": "secret123"}, nil)

	require.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	require.Equal(t, wrongPassword.Code, unknownEmail.Code)
	require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String(),
		"the response must not reveal which field was wrong")
}

func TestLoginLogoutLifecycle(t *testing.T) {
	app := newTestApp(t)
	handler := app.Routes(nil)
	require.Equal(t, http.StatusCreated, signUp(t, handler, "a@b.com", "secret123").Code)

	login := doJSON(t, handler, http.MethodPost, "/api/log-in",
		map[string]string{"email": "a@b.com", "password": "secret123"}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	require.Len(t, login.Result().Cookies(), 2)

	logout := doJSON(t, handler, http.MethodPost, "/api/log-out", nil, login.Result().Cookies())
	require.Equal(t, http.StatusOK, logout.Code)
	for _, c := range logout.Result().Cookies() {
		require.Empty(t, c.Value)
		require.True(t, c.MaxAge < 0 || c.Expires.Before(time.Now()))
	}

	noCookies := doJSON(t, handler, http.MethodGet, "/api/fetch-user", nil, nil)
	require.Equal(t, http.StatusUnauthorized, noCookies.Code)
}

func TestLoginThrottleBlocksAfterThreshold(t *testing.T) {
	app := newTestApp(t)
	app.loginLimiter = NewLoginLimiter(3, time.Minute)
	handler := app.Routes(nil)
	require.Equal(t, http.StatusCreated, signUp(t, handler, "a@b.com", "secret123").Code)

	body := map[string]string{"email": "a@b.com", "password": "wrong"}
	for i := 0; i < 3; i++ {
		resp := doJSON(t, handler, http.MethodPost, "/api/log-in", body, nil)
		require.Equal(t, http.StatusBadRequest, resp.Code, "attempt %d", i)
	}

	blocked := doJSON(t, handler, http.MethodPost, "/api/log-in", body, nil)
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)

	// correct credentials are also blocked during the cooldown
	good := doJSON(t, handler, http.MethodPost, "/api/log-in",
		map[string]string{"email": "a@b.com", "password": "secret123"}, nil)
	require.Equal(t, http.StatusTooManyRequests, good.Code)
}

func TestFetchUserGoneFromStore(t *testing.T) {
	app := newTestApp(t)
	handler := app.Routes(nil)

	// a valid token bound to a user the store no longer has
	access, err := app.tokens.MintAccess("ghost-id")
	require.NoError(t, err)
	resp := doJSON(t, handler, http.MethodGet, "/api/fetch-user", nil,
		[]*http.Cookie{{Name: accessCookieName, Value: access}})
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAddAdmin(t *testing.T) {
	app := newTestApp(t)
	handler := app.Routes(nil)

	admin, err := app.store.CreateUser(context.Background(), "admin@b.com", "admin", "x")
	require.NoError(t, err)
	_, err = app.store.UpdateUserRole(context.Background(), admin.Email, RoleAdmin)
	require.NoError(t, err)
	target, err := app.store.CreateUser(context.Background(), "member@b.com", "member", "x")
	require.NoError(t, err)

	adminAccess, err := app.tokens.MintAccess(admin.ID)
	require.NoError(t, err)
	adminCookie := []*http.Cookie{{Name: accessCookieName, Value: adminAccess}}

	t.Run("no cookie", func(t *testing.T) {
		resp := doJSON(t, handler, http.MethodPost, "/api/add-admin",
			map[string]string{"email": target.Email}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		resp := doJSON(t, handler, http.MethodPost, "/api/add-admin",
			map[string]string{"email": target.Email},
			[]*http.Cookie{{Name: accessCookieName, Value: "garbage"}})
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("non-admin caller", func(t *testing.T) {
		memberAccess, err := app.tokens.MintAccess(target.ID)
		require.NoError(t, err)
		resp := doJSON(t, handler, http.MethodPost, "/api/add-admin",
			map[string]string{"email": admin.Email},
			[]*http.Cookie{{Name: accessCookieName, Value: memberAccess}})
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("missing email", func(t *testing.T) {
		resp := doJSON(t, handler, http.MethodPost, "/api/add-admin",
			map[string]string{}, adminCookie)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("unknown target", func(t *testing.T) {
		resp := doJSON(t, handler, http.MethodPost, "/api/add-admin",
			map[string]string{"email": "missing@b.com"}, adminCookie)
		require.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("promotes target", func(t *testing.T) {
		resp := doJSON(t, handler, http.MethodPost, "/api/add-admin",
			map[string]string{"email": target.Email}, adminCookie)
		require.Equal(t, http.StatusOK, resp.Code)

		promoted, err := app.store.GetUserByEmail(context.Background(), target.Email)
		require.NoError(t, err)
		require.Equal(t, RoleAdmin, promoted.Role)
	})
}

func TestScenarioSignUpLoginLogoutFetch(t *testing.T) {
	app := newTestApp(t)
	handler := app.Routes(nil)

	resp := doJSON(t, handler, http.MethodPost, "/api/sign-up", map[string]string{
		"username": "ab", "email": "a@b.com", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, resp.Result().Cookies(), 2)

	login := doJSON(t, handler, http.MethodPost, "/api/log-in",
		map[string]string{"email": "a@b.com", "password": "secret123"}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	require.Len(t, login.Result().Cookies(), 2)

	logout := doJSON(t, handler, http.MethodPost, "/api/log-out", nil, login.Result().Cookies())
	require.Equal(t, http.StatusOK, logout.Code)

	unauth := doJSON(t, handler, http.MethodGet, "/api/fetch-user", nil, nil)
	require.Equal(t, http.StatusUnauthorized, unauth.Code)
}

func TestRateLimiterMiddleware(t *testing.T) {
	app := newTestApp(t)
	handler := app.Routes(NewRateLimiter(60, 2))

	body := map[string]string{"email": "a@b.com", "password": "secret123"}
	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		resp := doJSON(t, handler, http.MethodPost, "/api/log-in", body, nil)
		codes = append(codes, resp.Code)
	}
	require.Contains(t, codes, http.StatusTooManyRequests,
		fmt.Sprintf("burst of 2 should not allow 4 immediate requests: %v", codes))
}
