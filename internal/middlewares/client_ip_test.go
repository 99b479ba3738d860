package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expectedIP string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.168.1.1:12345",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.168.1.1",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "true-client-ip wins",
			remoteAddr: "10.0.0.1:12345",
			headers: map[string]string{
				"True-Client-IP":  "203.0.113.4",
				"X-Real-IP":       "203.0.113.5",
				"X-Forwarded-For": "203.0.113.6",
			},
			expectedIP: "203.0.113.4",
		},
		{
			name:       "invalid true-client-ip falls through",
			remoteAddr: "10.0.0.1:12345",
			headers: map[string]string{
				"True-Client-IP": "not.valid.ip",
				"X-Real-IP":      "203.0.113.7",
			},
			expectedIP: "203.0.113.7",
		},
		{
			name:       "first forwarded hop",
			remoteAddr: "10.0.0.1:12345",
			headers: map[string]string{
				"X-Forwarded-For": "  198.51.100.5  , 10.0.0.2, 10.0.0.3",
			},
			expectedIP: "198.51.100.5",
		},
		{
			name:       "invalid forwarded falls back to remote addr",
			remoteAddr: "10.0.0.1:12345",
			headers: map[string]string{
				"X-Forwarded-For": "invalid-ip",
			},
			expectedIP: "10.0.0.1",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:12345",
			expectedIP: "2001:db8::1",
		},
		{
			name:       "ipv4 mapped ipv6 is unmapped",
			remoteAddr: "[::ffff:192.0.2.1]:443",
			expectedIP: "192.0.2.1",
		},
		{
			name:       "invalid remote addr",
			remoteAddr: "invalid",
			expectedIP: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			assert.Equal(t, tt.expectedIP, ClientIP(req))
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		remoteAddr     string
		headers        map[string]string
		expectedRemote string
	}{
		{
			name:           "direct connection keeps port",
			remoteAddr:     "203.0.113.1:54321",
			expectedRemote: "203.0.113.1:54321",
		},
		{
			name:           "missing port becomes zero",
			remoteAddr:     "203.0.113.1",
			expectedRemote: "203.0.113.1:0",
		},
		{
			name:           "forwarded ip keeps proxy port",
			remoteAddr:     "10.0.0.1:12345",
			headers:        map[string]string{"X-Real-IP": "198.51.100.2"},
			expectedRemote: "198.51.100.2:12345",
		},
		{
			name:           "ipv6 forwarded ip is bracketed",
			remoteAddr:     "10.0.0.1:12345",
			headers:        map[string]string{"X-Forwarded-For": "2001:db8::2"},
			expectedRemote: "[2001:db8::2]:12345",
		},
		{
			name:           "unparseable remote addr left alone",
			remoteAddr:     "invalid",
			expectedRemote: "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := ClientIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.expectedRemote, captured)
		})
	}
}

func BenchmarkClientIP(b *testing.B) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ClientIP(req)
	}
}
