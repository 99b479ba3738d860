package testutil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gatekeeper/internal/config"
	"gatekeeper/internal/middlewares"
	"gatekeeper/internal/mocks"

	"go.uber.org/mock/gomock"
)

// TestContext holds everything needed for testing
type TestContext struct {
	AppContext     *middlewares.AppContext
	Request        *http.Request
	Response       *httptest.ResponseRecorder
	MockController *gomock.Controller
	MockSession    *mocks.MockSessionProvider
	MockOAuth      *mocks.MockOAuthProvider
	MockUpstream   *mocks.MockUpstreamClient
	LogHandler     *TestLogHandler
}

// TestConfig returns a config that passes validation.
func TestConfig() *config.Config {
	insecure := false
	return &config.Config{
		Server: config.ServerConfig{
			Port:        8080,
			ExternalURL: "https://app.example.com",
		},
		OAuth: config.OAuthConfig{
			ClientID:     "client-123",
			ClientSecret: "client-secret",
			AuthorizeURL: "https://provider.example.com/api/v2/authorize",
			TokenPath:    config.DefaultOAuthConfig.TokenPath,
			CallbackPath: config.DefaultOAuthConfig.CallbackPath,
		},
		Gateway: config.GatewayConfig{
			URL:     "http://gateway.example.com",
			APIKey:  "gateway-key",
			Timeout: config.DefaultGatewayConfig.Timeout,
		},
		Sessions: config.SessionConfig{
			Name:   config.DefaultSessionConfig.Name,
			Secret: strings.Repeat("k", config.MinSessionSecretLength),
			MaxAge: config.DefaultSessionConfig.MaxAge,
			Secure: &insecure,
		},
		Log:  config.DefaultLogConfig,
		CORS: config.DefaultCORSConfig,
	}
}

// NewTestContextWithURL creates a complete test setup with mocked providers.
func NewTestContextWithURL(t *testing.T, method, url string) *TestContext {
	return NewTestContextWithRequest(t, httptest.NewRequest(method, url, nil))
}

func NewTestContextWithRequest(t *testing.T, req *http.Request) *TestContext {
	logHandler := NewTestLogHandler()
	logger := slog.New(logHandler)

	ctrl := gomock.NewController(t)

	mockSession := mocks.NewMockSessionProvider(ctrl)
	mockOAuth := mocks.NewMockOAuthProvider(ctrl)
	mockUpstream := mocks.NewMockUpstreamClient(ctrl)

	rr := httptest.NewRecorder()

	appCtx := &middlewares.AppContext{
		Context:        req.Context(),
		Config:         TestConfig(),
		Logger:         logger,
		SessionManager: mockSession,
		OAuthProvider:  mockOAuth,
		Upstream:       mockUpstream,
		Request:        req,
		Response:       rr,
	}

	return &TestContext{
		AppContext:     appCtx,
		Request:        req,
		Response:       rr,
		MockController: ctrl,
		MockSession:    mockSession,
		MockOAuth:      mockOAuth,
		MockUpstream:   mockUpstream,
		LogHandler:     logHandler,
	}
}

// Finish should be called at the end of tests to clean up mocks
func (tc *TestContext) Finish() {
	if tc.MockController != nil {
		tc.MockController.Finish()
	}
}

// CallHandler executes a handler with the test context
func (tc *TestContext) CallHandler(handler middlewares.AppHandler) {
	handler(tc.AppContext)
}

func (tc *TestContext) AssertStatus(t *testing.T, expectedStatus int) {
	t.Helper()
	if tc.Response.Code != expectedStatus {
		t.Errorf("Expected status %d, got %d", expectedStatus, tc.Response.Code)
	}
}

func (tc *TestContext) AssertContentType(t *testing.T, expectedType string) {
	t.Helper()
	if ct := tc.Response.Header().Get("Content-Type"); ct != expectedType {
		t.Errorf("Expected content type %s, got %s", expectedType, ct)
	}
}

func (tc *TestContext) AssertLocationHeader(t *testing.T, expected string) {
	t.Helper()
	if location := tc.Response.Header().Get("Location"); location != expected {
		t.Errorf("Expected Location %q, got %q", expected, location)
	}
}

func (tc *TestContext) AssertNoCookie(t *testing.T) {
	t.Helper()
	if cookies := tc.Response.Result().Cookies(); len(cookies) != 0 {
		t.Errorf("Expected no cookies, got %d", len(cookies))
	}
}

func (tc *TestContext) AssertLogsContainMessage(t *testing.T, level slog.Level, message string) {
	t.Helper()
	if !tc.LogHandler.ContainsMessage(level, message) {
		t.Errorf("Expected to find log entry with level %v containing message: %s", level, message)
	}
}

// GetJSONResponse parses the response body as JSON
func (tc *TestContext) GetJSONResponse(t *testing.T) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(tc.Response.Body.Bytes(), &response); err != nil {
		t.Fatalf("Could not parse JSON response: %v", err)
	}
	return response
}

// AssertJSONString checks a specific string field in a JSON response
func (tc *TestContext) AssertJSONString(t *testing.T, field string, expected string) {
	t.Helper()
	response := tc.GetJSONResponse(t)
	actual, exists := response[field]

	if !exists {
		t.Errorf("Field %s not found in response", field)
		return
	}

	actualString, ok := actual.(string)
	if !ok {
		t.Errorf("Expected %s to be a string, got %T", field, actual)
		return
	}

	if actualString != expected {
		t.Errorf("Expected %s to be %q, got %q", field, expected, actualString)
	}
}

func (tc *TestContext) AssertJSONBool(t *testing.T, field string, expected bool) {
	t.Helper()
	response := tc.GetJSONResponse(t)
	actual, exists := response[field]

	if !exists {
		t.Errorf("Field %s not found in response", field)
		return
	}

	actualBool, ok := actual.(bool)
	if !ok {
		t.Errorf("Expected %s to be a boolean, got %T", field, actual)
		return
	}

	if actualBool != expected {
		t.Errorf("Expected %s to be %v, got %v", field, expected, actualBool)
	}
}

// WithConfig allows you to override the default config for specific tests
func (tc *TestContext) WithConfig(cfg *config.Config) *TestContext {
	tc.AppContext.Config = cfg
	return tc
}

// WithSessionManager swaps the mocked session provider for a real one.
func (tc *TestContext) WithSessionManager(sm middlewares.SessionProvider) *TestContext {
	tc.AppContext.SessionManager = sm
	return tc
}

func (tc *TestContext) WithQueryParam(key, value string) *TestContext {
	q := tc.Request.URL.Query()
	q.Add(key, value)
	tc.Request.URL.RawQuery = q.Encode()
	return tc
}

// WithContext replaces the request context, e.g. to carry chi route params.
func (tc *TestContext) WithContext(ctx context.Context) *TestContext {
	tc.Request = tc.Request.WithContext(ctx)
	tc.AppContext.Request = tc.Request
	tc.AppContext.Context = ctx
	return tc
}

// AssertJSONField checks a specific field in a JSON response
func (tc *TestContext) AssertJSONField(t *testing.T, field string, expected any) {
	t.Helper()
	response := tc.GetJSONResponse(t)
	if actual, ok := response[field]; !ok || actual != expected {
		t.Errorf("Expected %s to be %v, got %v", field, expected, response[field])
	}
}

func (tc *TestContext) GetResponseBody() string {
	return tc.Response.Body.String()
}
