package middlewares

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// forwardedHeaders are consulted in order. Only the first X-Forwarded-For hop is used.
var forwardedHeaders = []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"}

// ClientIPMiddleware rewrites RemoteAddr to "clientIP:port" using the reverse proxy's
// forwarding headers, so logs see the real caller. The headers are trusted as sent; only
// mount it behind a proxy that overwrites them.
func ClientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := ClientIP(r); ip != "" {
			port := "0"
			if _, p, err := net.SplitHostPort(r.RemoteAddr); err == nil && p != "" {
				port = p
			}
			r.RemoteAddr = net.JoinHostPort(ip, port)
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller address, or "" if none of the candidates parse.
func ClientIP(r *http.Request) string {
	for _, header := range forwardedHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		if first, _, found := strings.Cut(value, ","); found {
			value = first
		}
		if addr, ok := parseAddr(value); ok {
			return addr
		}
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}

	addr, _ := parseAddr(host)
	return addr
}

func parseAddr(value string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
