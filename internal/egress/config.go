package egress

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"gatekeeper/internal/authentication"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment only; the gateway runs on a separate host and
// holds the provider credentials.
type Config struct {
	Port         int           `env:"EGRESS_PORT" envDefault:"8080"`
	UpstreamURL  string        `env:"EGRESS_UPSTREAM_URL" envDefault:"https://hackforums.net/api/v2"`
	ClientID     string        `env:"EGRESS_CLIENT_ID"`
	ClientSecret string        `env:"EGRESS_CLIENT_SECRET"`
	APIKey       string        `env:"EGRESS_API_KEY"`
	Timeout      time.Duration `env:"EGRESS_TIMEOUT" envDefault:"30s"`
	RateLimit    float64       `env:"EGRESS_RATE_LIMIT" envDefault:"0"`
	RateBurst    int           `env:"EGRESS_RATE_BURST" envDefault:"10"`
	MetricsAddr  string        `env:"EGRESS_METRICS_ADDR"`
	LogLevel     string        `env:"EGRESS_LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"EGRESS_LOG_FORMAT" envDefault:"text"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// RequiredStatus reports "set" or "missing" for each required variable, in a stable order.
func (c *Config) RequiredStatus() []RequiredVar {
	return []RequiredVar{
		{Name: "EGRESS_CLIENT_ID", Set: c.ClientID != ""},
		{Name: "EGRESS_CLIENT_SECRET", Set: c.ClientSecret != ""},
		{Name: "EGRESS_API_KEY", Set: c.APIKey != ""},
	}
}

type RequiredVar struct {
	Name string
	Set  bool
}

func (v RequiredVar) Status() string {
	if v.Set {
		return "set"
	}
	return "missing"
}

func (c *Config) Validate() error {
	var missing []string
	for _, v := range c.RequiredStatus() {
		if !v.Set {
			missing = append(missing, v.Name)
		}
	}
	if len(missing) > 0 {
		return authentication.NewConfigurationError(strings.Join(missing, ", "), "must be set")
	}

	parsed, err := url.Parse(c.UpstreamURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return authentication.NewConfigurationError("EGRESS_UPSTREAM_URL", "must be an absolute http or https URL")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return authentication.NewConfigurationError("EGRESS_PORT", fmt.Sprintf("must be between 1 and 65535, got %d", c.Port))
	}

	if c.Timeout <= 0 {
		return authentication.NewConfigurationError("EGRESS_TIMEOUT", "must be positive")
	}

	if c.RateLimit < 0 {
		return authentication.NewConfigurationError("EGRESS_RATE_LIMIT", "must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return authentication.NewConfigurationError("EGRESS_RATE_BURST", "must be at least 1 when rate limiting is enabled")
	}

	return nil
}
