// Package upstream talks to the fixed-identity egress gateway that fronts the provider API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gatekeeper/internal/authentication"
	"gatekeeper/internal/config"
	"gatekeeper/internal/metrics"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	HeaderAPIKey    = "X-API-Key"
	HeaderRequestID = "X-Request-ID"

	maxResponseBytes = 10 << 20
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg config.GatewayConfig, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, authentication.NewConfigurationError("gateway.url", "is required")
	}

	parsed, err := url.Parse(cfg.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, authentication.NewConfigurationError("gateway.url", "must be an absolute http or https URL")
	}

	if cfg.APIKey == "" {
		return nil, authentication.NewConfigurationError("gateway.api_key", "is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultGatewayConfig.Timeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Get issues a GET against the gateway. token may be empty.
func (c *Client) Get(ctx context.Context, path, token string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, "", token)
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, path string, body any, token string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	return c.do(ctx, http.MethodPost, path, reader, "application/json", token)
}

// PostForm sends form as application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, token string) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", token)
}

func (c *Client) endpoint(path string) string {
	if path == "" {
		return c.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, token string) (*Response, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, 0, start)
		c.logger.Warn("gateway request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, newNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		c.observe(method, 0, start)
		return nil, newNetworkError(fmt.Errorf("failed to read response body: %w", err))
	}
	if len(raw) > maxResponseBytes {
		c.observe(method, 0, start)
		c.logger.Warn("gateway response too large", "method", method, "path", path, "request_id", requestID, "limit", maxResponseBytes)
		return nil, newNetworkError(ErrResponseTooLarge)
	}
	c.observe(method, resp.StatusCode, start)

	contentTypeHeader := resp.Header.Get("Content-Type")
	var parsed any
	if isJSONContentType(contentTypeHeader) {
		parsed, _ = parseJSON(raw)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parsed == nil {
			// Some error pages omit the content type.
			parsed, _ = parseJSON(raw)
		}
		upstreamErr := newStatusError(resp.StatusCode, raw, parsed)
		c.logger.Debug("gateway returned error status",
			"method", method,
			"path", path,
			"request_id", requestID,
			"status", resp.StatusCode,
			"message", upstreamErr.Message)
		return nil, upstreamErr
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: contentTypeHeader,
		Raw:         raw,
		JSON:        parsed,
	}, nil
}

func (c *Client) observe(method string, status int, start time.Time) {
	metrics.UpstreamRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	metrics.UpstreamRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
