package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gatekeeper/internal/authentication"
	"gatekeeper/internal/config"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.GatewayConfig{
		URL:     server.URL + "/",
		APIKey:  "gateway-key",
		Timeout: 5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return client
}

func TestNewClient_RequiresConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.GatewayConfig
		wantField string
	}{
		{name: "missing url", cfg: config.GatewayConfig{APIKey: "k"}, wantField: "gateway.url"},
		{name: "non http url", cfg: config.GatewayConfig{URL: "ftp://gw", APIKey: "k"}, wantField: "gateway.url"},
		{name: "relative url", cfg: config.GatewayConfig{URL: "/gateway", APIKey: "k"}, wantField: "gateway.url"},
		{name: "missing api key", cfg: config.GatewayConfig{URL: "http://gw.example.com"}, wantField: "gateway.api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg, nil)
			assert.Nil(t, client)

			var cfgErr *authentication.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestClient_Get_SetsHeaders(t *testing.T) {
	var got *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"uid":42,"username":"alice"}`))
	})

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	resp, err := client.Get(ctx, "/read/me?fields=uid", "user-token")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/read/me", got.URL.Path)
	assert.Equal(t, "fields=uid", got.URL.RawQuery)
	assert.Equal(t, "gateway-key", got.Header.Get(HeaderAPIKey))
	assert.Equal(t, "req-123", got.Header.Get(HeaderRequestID))
	assert.Equal(t, "Bearer user-token", got.Header.Get("Authorization"))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsJSON())
	assert.Equal(t, map[string]any{"uid": float64(42), "username": "alice"}, resp.JSON)
}

func TestClient_Get_WithoutTokenOmitsAuthorization(t *testing.T) {
	var got http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	})

	resp, err := client.Get(context.Background(), "ping", "")
	require.NoError(t, err)

	assert.Empty(t, got.Get("Authorization"))
	assert.NotEmpty(t, got.Get(HeaderRequestID), "a request id is generated when none is in context")
	assert.False(t, resp.IsJSON())
	assert.Equal(t, "pong", resp.Text())
}

func TestClient_PostForm(t *testing.T) {
	var form url.Values
	var contentType string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","uid":42}`))
	})

	resp, err := client.PostForm(context.Background(), "/token", url.Values{
		"grant_type": {"authorization_code"},
		"code":       {"abc123"},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "abc123", form.Get("code"))

	var decoded struct {
		AccessToken string `json:"access_token"`
		UID         int    `json:"uid"`
	}
	require.NoError(t, resp.Decode(&decoded))
	assert.Equal(t, "tok", decoded.AccessToken)
	assert.Equal(t, 42, decoded.UID)
}

func TestClient_Post_SendsJSON(t *testing.T) {
	var body []byte
	var contentType string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})

	resp, err := client.Post(context.Background(), "/write/posts", map[string]string{"message": "hi"}, "tok")
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t, `{"message":"hi"}`, string(body))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, resp.Raw)
}

func TestClient_ErrorStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantMessage string
	}{
		{
			name:        "json error field",
			status:      http.StatusUnauthorized,
			contentType: "application/json",
			body:        `{"error":"invalid_grant"}`,
			wantMessage: "invalid_grant",
		},
		{
			name:        "json message field",
			status:      http.StatusForbidden,
			contentType: "application/json",
			body:        `{"message":"scope missing"}`,
			wantMessage: "scope missing",
		},
		{
			name:        "json error description",
			status:      http.StatusBadRequest,
			contentType: "application/json",
			body:        `{"error_description":"code expired"}`,
			wantMessage: "code expired",
		},
		{
			name:        "json without content type",
			status:      http.StatusBadRequest,
			body:        `{"error":"bad_request"}`,
			wantMessage: "bad_request",
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			contentType: "text/plain",
			body:        "upstream unavailable\n",
			wantMessage: "upstream unavailable",
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			wantMessage: "empty response body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := client.Get(context.Background(), "/anything", "")
			assert.Nil(t, resp)

			var upstreamErr *Error
			require.True(t, errors.As(err, &upstreamErr))
			assert.Equal(t, tt.status, upstreamErr.StatusCode)
			assert.Equal(t, tt.wantMessage, upstreamErr.Message)
			assert.Equal(t, tt.body, string(upstreamErr.Body))
			assert.False(t, upstreamErr.IsNetwork())
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, err := NewClient(config.GatewayConfig{URL: baseURL, APIKey: "k", Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/token", "")

	var upstreamErr *Error
	require.True(t, errors.As(err, &upstreamErr))
	assert.True(t, upstreamErr.IsNetwork())
	assert.Equal(t, 0, upstreamErr.StatusCode)
	assert.NotNil(t, errors.Unwrap(upstreamErr))
	assert.Contains(t, upstreamErr.Error(), "upstream request failed")
}

func TestClient_RejectsOversizedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`"`))
		_, _ = w.Write([]byte(strings.Repeat("a", maxResponseBytes)))
		_, _ = w.Write([]byte(`"`))
	})

	resp, err := client.Get(context.Background(), "/read/huge", "tok")
	assert.Nil(t, resp)

	var upstreamErr *Error
	require.True(t, errors.As(err, &upstreamErr))
	assert.True(t, upstreamErr.IsNetwork())
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestClient_AcceptsResponseAtLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", maxResponseBytes)))
	})

	resp, err := client.Get(context.Background(), "/read/big", "tok")
	require.NoError(t, err)
	assert.Len(t, resp.Raw, maxResponseBytes)
}

func TestClient_JSONNullBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("null"))
	})

	resp, err := client.Get(context.Background(), "/read/me", "tok")
	require.NoError(t, err)
	assert.Nil(t, resp.JSON)
	assert.True(t, resp.IsJSON())
}

func TestResponse_IsJSON(t *testing.T) {
	assert.True(t, (&Response{ContentType: "application/json", Raw: []byte(`{"a":1}`)}).IsJSON())
	assert.True(t, (&Response{ContentType: "application/problem+json", Raw: []byte(`[]`)}).IsJSON())
	assert.False(t, (&Response{ContentType: "text/plain", Raw: []byte(`{"a":1}`)}).IsJSON())
	assert.False(t, (&Response{ContentType: "application/json", Raw: []byte(`{"a":`)}).IsJSON())
}

func TestResponse_Decode_Empty(t *testing.T) {
	resp := &Response{}
	var v map[string]any
	assert.Error(t, resp.Decode(&v))
}
