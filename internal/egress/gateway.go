// Package egress is the fixed-identity gateway. It runs on the network address the
// provider has whitelisted, checks the shared API key and forwards GET and POST calls to
// the provider API.
package egress

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gatekeeper/internal/metrics"
	"gatekeeper/internal/upstream"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

const maxForwardBodyBytes = 10 << 20

// hopHeaders are not copied from the provider response.
var hopHeaders = map[string]struct{}{
	"Transfer-Encoding": {},
	"Connection":        {},
	"Content-Length":    {},
}

type Gateway struct {
	cfg        *Config
	upstream   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func New(cfg *Config, logger *slog.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return &Gateway{
		cfg:      cfg,
		upstream: strings.TrimRight(cfg.UpstreamURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Router returns the gateway's HTTP handler. Every path is forwarded. The gateway faces
// the internet directly, so RemoteAddr is used as-is and forwarding headers are ignored.
func (g *Gateway) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(g.requireAPIKey)

	r.HandleFunc("/*", g.forward)

	return r
}

func (g *Gateway) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get(upstream.HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(g.cfg.APIKey)) != 1 {
			metrics.EgressRequestsTotal.WithLabelValues(r.Method, metrics.EgressOutcomeUnauthorized).Inc()
			g.logger.Warn("rejected request with invalid api key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			writeJSONError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) forward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		metrics.EgressRequestsTotal.WithLabelValues(r.Method, metrics.EgressOutcomeBadMethod).Inc()
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte("Method Not Allowed"))
		return
	}

	if upstream.HasDotSegment(r.URL.EscapedPath()) {
		metrics.EgressRequestsTotal.WithLabelValues(r.Method, metrics.EgressOutcomeInvalidPath).Inc()
		g.logger.Warn("rejected path with dot segments", "remote_addr", r.RemoteAddr, "path", r.URL.EscapedPath())
		writeJSONError(w, http.StatusBadRequest, "Invalid path")
		return
	}

	if g.limiter != nil && !g.limiter.Allow() {
		metrics.EgressRequestsTotal.WithLabelValues(r.Method, metrics.EgressOutcomeRateLimited).Inc()
		g.logger.Warn("rate limit exceeded", "remote_addr", r.RemoteAddr)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(g.limiter.Limit())))
		writeJSONError(w, http.StatusTooManyRequests, "Too Many Requests")
		return
	}

	target := g.targetURL(r)
	g.logger.Info("Proxying request", "method", r.Method, "url", target, "request_id", middleware.GetReqID(r.Context()))

	var body io.Reader
	if r.Method == http.MethodPost && r.Body != nil {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxForwardBodyBytes))
		if err != nil {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		if len(payload) > 0 {
			body = bytes.NewReader(payload)
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		g.badGateway(w, r, err)
		return
	}
	g.copyRequestHeaders(req, r)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	metrics.EgressUpstreamDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		g.badGateway(w, r, err)
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if _, skip := hopHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		g.logger.Warn("failed to copy provider response", "error", err)
	}

	metrics.EgressRequestsTotal.WithLabelValues(r.Method, metrics.EgressOutcomeForwarded).Inc()
}

func (g *Gateway) targetURL(r *http.Request) string {
	target := g.upstream + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}

// copyRequestHeaders builds a fresh header set; the shared API key never leaves the gateway.
func (g *Gateway) copyRequestHeaders(dst, src *http.Request) {
	authorization := src.Header.Get("Authorization")
	if authorization == "" {
		authorization = "Bearer " + g.cfg.ClientID
	}
	dst.Header.Set("Authorization", authorization)

	contentType := src.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	dst.Header.Set("Content-Type", contentType)

	if accept := src.Header.Get("Accept"); accept != "" {
		dst.Header.Set("Accept", accept)
	}
	if requestID := src.Header.Get(upstream.HeaderRequestID); requestID != "" {
		dst.Header.Set(upstream.HeaderRequestID, requestID)
	}
}

func (g *Gateway) badGateway(w http.ResponseWriter, r *http.Request, err error) {
	metrics.EgressRequestsTotal.WithLabelValues(r.Method, metrics.EgressOutcomeBadGateway).Inc()
	g.logger.Error("Error proxying request", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSONError(w, http.StatusBadGateway, "Bad Gateway")
}

func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 || limit == rate.Inf {
		return 1
	}
	seconds := int(math.Ceil(1.0 / float64(limit)))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
