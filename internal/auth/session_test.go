package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gatekeeper/internal/authentication"
	"gatekeeper/internal/config"
	"gatekeeper/internal/middlewares"
	"gatekeeper/internal/models"
	"gatekeeper/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T, mutate func(cfg *config.Config)) *SessionManager {
	t.Helper()

	cfg := testutil.TestConfig()
	if mutate != nil {
		mutate(cfg)
	}

	manager, err := NewSessionManager(nil, cfg)
	require.NoError(t, err)
	return manager
}

func newAppContext(req *http.Request) (*middlewares.AppContext, *httptest.ResponseRecorder) {
	rr := httptest.NewRecorder()
	return &middlewares.AppContext{
		Context:  req.Context(),
		Config:   testutil.TestConfig(),
		Request:  req,
		Response: rr,
	}, rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func testSession() *models.Session {
	return &models.Session{
		UserID:      "42",
		AccessToken: "tok",
		CreatedAt:   time.Date(2024, 5, 1, 12, 30, 45, 123456789, time.UTC),
	}
}

func TestNewSessionManager_RejectsWeakSecret(t *testing.T) {
	for _, secret := range []string{"", "short", strings.Repeat("x", config.MinSessionSecretLength-1)} {
		cfg := testutil.TestConfig()
		cfg.Sessions.Secret = secret

		manager, err := NewSessionManager(nil, cfg)
		assert.Nil(t, manager)

		var cfgErr *authentication.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "sessions.secret", cfgErr.Field)
	}
}

func TestSessionManager_RoundTrip(t *testing.T) {
	manager := newTestSessionManager(t, nil)

	writeCtx, rr := newAppContext(httptest.NewRequest(http.MethodGet, "/auth", nil))
	require.NoError(t, manager.SetSession(writeCtx, testSession()))

	cookie := sessionCookie(t, rr, config.DefaultSessionConfig.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int(config.DefaultSessionConfig.MaxAge.Seconds()), cookie.MaxAge)

	decoded, ok := manager.Decode(cookie.Value)
	require.True(t, ok)
	assert.Equal(t, testSession(), decoded)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	readCtx, _ := newAppContext(req)

	got, ok := manager.GetSession(readCtx)
	require.True(t, ok)
	assert.Equal(t, "42", got.UserID)
	assert.Equal(t, "tok", got.AccessToken)
	assert.True(t, testSession().CreatedAt.Equal(got.CreatedAt))
}

func TestSessionManager_SecureCookieByDefault(t *testing.T) {
	manager := newTestSessionManager(t, func(cfg *config.Config) {
		cfg.Sessions.Secure = nil
	})

	ctx, rr := newAppContext(httptest.NewRequest(http.MethodGet, "/auth", nil))
	require.NoError(t, manager.SetSession(ctx, testSession()))

	assert.True(t, sessionCookie(t, rr, config.DefaultSessionConfig.Name).Secure)
}

func TestSessionManager_SetSessionRejectsPartial(t *testing.T) {
	manager := newTestSessionManager(t, nil)
	ctx, rr := newAppContext(httptest.NewRequest(http.MethodGet, "/auth", nil))

	err := manager.SetSession(ctx, &models.Session{UserID: "42", CreatedAt: time.Now()})
	assert.Error(t, err)
	assert.Empty(t, rr.Result().Cookies())
}

func TestSessionManager_GetSessionWithoutCookie(t *testing.T) {
	manager := newTestSessionManager(t, nil)
	ctx, _ := newAppContext(httptest.NewRequest(http.MethodGet, "/", nil))

	session, ok := manager.GetSession(ctx)
	assert.False(t, ok)
	assert.Nil(t, session)
}

func TestSessionManager_RejectsUntrustedCookies(t *testing.T) {
	manager := newTestSessionManager(t, nil)

	foreign := newTestSessionManager(t, func(cfg *config.Config) {
		cfg.Sessions.Secret = strings.Repeat("z", config.MinSessionSecretLength)
	})
	foreignCtx, foreignRR := newAppContext(httptest.NewRequest(http.MethodGet, "/auth", nil))
	require.NoError(t, foreign.SetSession(foreignCtx, testSession()))
	foreignValue := sessionCookie(t, foreignRR, config.DefaultSessionConfig.Name).Value

	validCtx, validRR := newAppContext(httptest.NewRequest(http.MethodGet, "/auth", nil))
	require.NoError(t, manager.SetSession(validCtx, testSession()))
	validValue := sessionCookie(t, validRR, config.DefaultSessionConfig.Name).Value

	flipped := []byte(validValue)
	if flipped[10] == 'A' {
		flipped[10] = 'B'
	} else {
		flipped[10] = 'A'
	}

	tests := []struct {
		name  string
		value string
	}{
		{name: "signed with another secret", value: foreignValue},
		{name: "tampered", value: string(flipped)},
		{name: "truncated", value: validValue[:len(validValue)/2]},
		{name: "garbage", value: "not-a-session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := manager.Decode(tt.value)
			assert.False(t, ok)

			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			req.AddCookie(&http.Cookie{Name: config.DefaultSessionConfig.Name, Value: tt.value})
			ctx, _ := newAppContext(req)

			session, ok := manager.GetSession(ctx)
			assert.False(t, ok)
			assert.Nil(t, session)
		})
	}
}

func TestSessionManager_RejectsExpiredCookie(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cookie timestamp to age")
	}

	manager := newTestSessionManager(t, func(cfg *config.Config) {
		cfg.Sessions.MaxAge = time.Second
	})

	ctx, rr := newAppContext(httptest.NewRequest(http.MethodGet, "/auth", nil))
	require.NoError(t, manager.SetSession(ctx, testSession()))
	value := sessionCookie(t, rr, config.DefaultSessionConfig.Name).Value

	readSession := func() bool {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: config.DefaultSessionConfig.Name, Value: value})
		readCtx, _ := newAppContext(req)
		_, ok := manager.GetSession(readCtx)
		return ok
	}

	require.True(t, readSession())

	time.Sleep(2100 * time.Millisecond)

	assert.False(t, readSession(), "expired cookie must read as no session")
	_, ok := manager.Decode(value)
	assert.False(t, ok)
}

func TestSessionManager_SetSessionVisibleWithinRequest(t *testing.T) {
	manager := newTestSessionManager(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.AddCookie(&http.Cookie{Name: "other", Value: "keep"})
	ctx, _ := newAppContext(req)

	_, ok := manager.GetSession(ctx)
	require.False(t, ok)

	require.NoError(t, manager.SetSession(ctx, testSession()))

	got, ok := manager.GetSession(ctx)
	require.True(t, ok)
	assert.Equal(t, "42", got.UserID)

	other, err := req.Cookie("other")
	require.NoError(t, err)
	assert.Equal(t, "keep", other.Value)
}

func TestSessionManager_ClearSessionIsIdempotent(t *testing.T) {
	manager := newTestSessionManager(t, nil)

	writeCtx, writeRR := newAppContext(httptest.NewRequest(http.MethodGet, "/auth", nil))
	require.NoError(t, manager.SetSession(writeCtx, testSession()))
	cookie := sessionCookie(t, writeRR, config.DefaultSessionConfig.Name)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookie)
	ctx, rr := newAppContext(req)

	_, ok := manager.GetSession(ctx)
	require.True(t, ok)

	require.NoError(t, manager.ClearSession(ctx))
	_, ok = manager.GetSession(ctx)
	assert.False(t, ok, "cleared within the same request")

	require.NoError(t, manager.ClearSession(ctx))
	_, ok = manager.GetSession(ctx)
	assert.False(t, ok, "clearing twice is harmless")

	expired := sessionCookie(t, rr, config.DefaultSessionConfig.Name)
	assert.Less(t, expired.MaxAge, 0)

	emptyCtx, _ := newAppContext(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.NoError(t, manager.ClearSession(emptyCtx))
	_, ok = manager.GetSession(emptyCtx)
	assert.False(t, ok)
}
