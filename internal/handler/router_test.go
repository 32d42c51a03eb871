package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memcache "github.com/prn-tf/victoria-identity/internal/cache/memory"
	"github.com/prn-tf/victoria-identity/internal/config"
	"github.com/prn-tf/victoria-identity/internal/domain"
	"github.com/prn-tf/victoria-identity/internal/lock"
	"github.com/prn-tf/victoria-identity/internal/metrics"
	"github.com/prn-tf/victoria-identity/internal/pkg/crypto"
	"github.com/prn-tf/victoria-identity/internal/repository/memory"
	"github.com/prn-tf/victoria-identity/internal/service"
	"github.com/prn-tf/victoria-identity/internal/settings"
)

const testCookieName = "victoria_session"

type apiFixture struct {
	server   *httptest.Server
	users    *memory.UserRepository
	sessions *service.SessionService
	shell    *domain.User
}

// newAPIFixture builds the full router over in-memory stores, with the
// placeholder owner already provisioned.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	users := memory.NewUserRepository()
	settingsRepo := memory.NewSettingsRepository()
	sessionsRepo := memory.NewSessionRepository()
	locker := lock.NewMemoryLocker()
	cache := memcache.NewCache()
	t.Cleanup(cache.Stop)

	runtime, err := settings.Load(ctx, settingsRepo, logger)
	require.NoError(t, err)

	userService := service.NewUserService(users, logger)
	sessionService := service.NewSessionService(sessionsRepo, users, cache, locker, time.Hour, logger)
	ownerService := service.NewOwnerService(users, runtime, locker, logger)

	shell, err := userService.ProvisionOwnerShell(ctx)
	require.NoError(t, err)

	sessionCfg := config.SessionConfig{TTL: time.Hour, CookieName: testCookieName}
	m := metrics.New()

	router := NewRouter(RouterConfig{
		Owner:   NewOwnerHandler(ownerService, sessionService, sessionCfg, m, logger),
		Auth:    NewAuthHandler(sessionService, sessionCfg, m, logger),
		Session: NewAuthenticator(sessionService, userService, runtime, testCookieName, logger),
		Metrics: m,
		Logger:  logger,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiFixture{
		server:   server,
		users:    users,
		sessions: sessionService,
		shell:    shell,
	}
}

func (f *apiFixture) post(t *testing.T, path string, body any, cookie *http.Cookie) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func (f *apiFixture) get(t *testing.T, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	return nil
}

func validClaimBody() map[string]string {
	return map[string]string{
		"email":     "owner@example.com",
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"password":  "Sup3rSecret",
	}
}

func TestClaimEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/api/v1/owner", validClaimBody(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie, "claim must issue a session cookie")
	assert.True(t, cookie.HttpOnly)

	body := decodeBody(t, resp)
	assert.Equal(t, "owner@example.com", body["email"])
	assert.Equal(t, "Ada", body["firstName"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "passwordHash")

	// The issued cookie authenticates subsequent requests.
	me := f.get(t, "/api/v1/me", cookie)
	require.Equal(t, http.StatusOK, me.StatusCode)
	assert.Equal(t, "owner@example.com", decodeBody(t, me)["email"])
}

func TestClaimEndpoint_SecondClaimRejected(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/api/v1/owner", validClaimBody(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	resp.Body.Close()

	// Even the owner's own session cannot claim twice.
	again := f.post(t, "/api/v1/owner", validClaimBody(), cookie)
	assert.Equal(t, http.StatusBadRequest, again.StatusCode)

	body := decodeBody(t, again)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Invalid request", body["message"])
}

func TestClaimEndpoint_PayloadErrors(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(map[string]string)
		wantMessage string
	}{
		{
			name:        "invalid email",
			mutate:      func(b map[string]string) { b["email"] = "not-an-email" },
			wantMessage: "Invalid email address",
		},
		{
			name:        "missing names",
			mutate:      func(b map[string]string) { b["firstName"] = "" },
			wantMessage: "First and last names are mandatory",
		},
		{
			name:        "weak password",
			mutate:      func(b map[string]string) { b["password"] = "short" },
			wantMessage: "Password must be at least 8 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			body := validClaimBody()
			tt.mutate(body)

			resp := f.post(t, "/api/v1/owner", body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantMessage, decodeBody(t, resp)["message"])
		})
	}
}

func TestClaimEndpoint_NonOwnerForbidden(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	hash, err := crypto.HashPassword("Memb3rPass")
	require.NoError(t, err)
	member := domain.NewShellUser(domain.GlobalMember)
	member.Email = "member@example.com"
	member.FirstName = "Mallory"
	member.LastName = "Member"
	member.PasswordHash = hash
	require.NoError(t, f.users.Create(ctx, member))

	session, err := f.sessions.Issue(ctx, member)
	require.NoError(t, err)
	cookie := &http.Cookie{Name: testCookieName, Value: session.Token}

	resp := f.post(t, "/api/v1/owner", validClaimBody(), cookie)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Unauthorized", body["message"])
}

func TestSkipSetupEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/api/v1/owner/skip-setup", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["success"])

	// Skipping twice is fine.
	again := f.post(t, "/api/v1/owner/skip-setup", nil, nil)
	assert.Equal(t, http.StatusOK, again.StatusCode)
	again.Body.Close()

	// The claim window stays open after a skip.
	claim := f.post(t, "/api/v1/owner", validClaimBody(), nil)
	assert.Equal(t, http.StatusOK, claim.StatusCode)
	claim.Body.Close()
}

func TestLoginEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/api/v1/owner", validClaimBody(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	t.Run("success", func(t *testing.T) {
		resp := f.post(t, "/api/v1/login", map[string]string{
			"email":    "owner@example.com",
			"password": "Sup3rSecret",
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotNil(t, sessionCookie(resp))
		assert.Equal(t, "owner@example.com", decodeBody(t, resp)["email"])
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := f.post(t, "/api/v1/login", map[string]string{
			"email":    "owner@example.com",
			"password": "WrongPass1",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid credentials", decodeBody(t, resp)["message"])
	})
}

func TestLogoutEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/api/v1/owner", validClaimBody(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	resp.Body.Close()

	out := f.post(t, "/api/v1/logout", nil, cookie)
	require.Equal(t, http.StatusOK, out.StatusCode)
	assert.Equal(t, true, decodeBody(t, out)["loggedOut"])

	// The session is gone; the instance is set up, so there is no
	// bootstrap fallback either.
	me := f.get(t, "/api/v1/me", cookie)
	assert.Equal(t, http.StatusUnauthorized, me.StatusCode)
	me.Body.Close()
}

func TestMeEndpoint_UnauthenticatedAfterSetup(t *testing.T) {
	f := newAPIFixture(t)

	// Before setup, cookieless requests resolve to the owner shell.
	me := f.get(t, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, me.StatusCode)
	assert.Equal(t, "", decodeBody(t, me)["email"])

	resp := f.post(t, "/api/v1/owner", validClaimBody(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	after := f.get(t, "/api/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, after.StatusCode)
	assert.Equal(t, "Unauthorized", decodeBody(t, after)["message"])
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.get(t, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestClaimEndpoint_MalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/v1/owner", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request", decodeBody(t, resp)["message"])
}
