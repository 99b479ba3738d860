package config

import (
	"fmt"
	"os"
	"strings"

	"gatekeeper/internal/authentication"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required (use -config or -c)")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML, applies GATEKEEPER_* environment overrides and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyEnvironmentOverrides(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvironmentOverrides only touches fields whose variable is set.
func applyEnvironmentOverrides(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return nil
}

func validateConfig(config *Config) error {
	if err := config.validateServerConfig(); err != nil {
		return err
	}

	if err := config.validateOAuthConfig(); err != nil {
		return err
	}

	if err := config.validateGatewayConfig(); err != nil {
		return err
	}

	if err := config.validateSessionConfig(); err != nil {
		return err
	}

	if err := config.validateLogConfig(); err != nil {
		return err
	}

	return config.validateCORSConfig()
}

func (c *Config) validateServerConfig() error {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerConfig.Port
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return authentication.NewConfigurationError("server.port", fmt.Sprintf("must be between 1 and 65535, got %d", c.Server.Port))
	}

	if err := validateURL(c.Server.ExternalURL, "server.external_url"); err != nil {
		return err
	}
	c.Server.ExternalURL = strings.TrimRight(c.Server.ExternalURL, "/")

	if c.Server.Debug != nil && c.Server.Debug.Enabled {
		if c.Server.Debug.Host == "" {
			c.Server.Debug.Host = DefaultDebugConfig.Host
		}
		if c.Server.Debug.Port <= 0 || c.Server.Debug.Port >= 65535 {
			c.Server.Debug.Port = DefaultDebugConfig.Port
		}
	}

	return nil
}

func (c *Config) validateOAuthConfig() error {
	if c.OAuth.ClientID == "" {
		return authentication.NewConfigurationError("oauth.client_id", "is required")
	}

	if c.OAuth.ClientSecret == "" {
		return authentication.NewConfigurationError("oauth.client_secret", "is required")
	}

	if err := validateURL(c.OAuth.AuthorizeURL, "oauth.authorize_url"); err != nil {
		return err
	}

	if c.OAuth.TokenPath == "" {
		c.OAuth.TokenPath = DefaultOAuthConfig.TokenPath
	} else if !strings.HasPrefix(c.OAuth.TokenPath, "/") {
		return authentication.NewConfigurationError("oauth.token_path", "must start with /")
	}

	if c.OAuth.CallbackPath == "" {
		c.OAuth.CallbackPath = DefaultOAuthConfig.CallbackPath
	} else if !strings.HasPrefix(c.OAuth.CallbackPath, "/") {
		return authentication.NewConfigurationError("oauth.callback_path", "must start with /")
	}

	return nil
}

func (c *Config) validateGatewayConfig() error {
	if err := validateURL(c.Gateway.URL, "gateway.url"); err != nil {
		return err
	}

	if c.Gateway.APIKey == "" {
		return authentication.NewConfigurationError("gateway.api_key", "is required")
	}

	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = DefaultGatewayConfig.Timeout
	}

	return nil
}

func (c *Config) validateSessionConfig() error {
	if c.Sessions.Secret == "" {
		return authentication.NewConfigurationError("sessions.secret", "is required")
	}

	if len(c.Sessions.Secret) < MinSessionSecretLength {
		return authentication.NewConfigurationError("sessions.secret", fmt.Sprintf("must be at least %d bytes", MinSessionSecretLength))
	}

	if c.Sessions.Name == "" {
		c.Sessions.Name = DefaultSessionConfig.Name
	}

	if c.Sessions.MaxAge <= 0 {
		c.Sessions.MaxAge = DefaultSessionConfig.MaxAge
	}

	return nil
}

func (c *Config) validateLogConfig() error {
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogConfig.Format
	} else {
		switch c.Log.Format {
		case "text", "json":
		default:
			return fmt.Errorf("invalid log format: %s, options are text or json", c.Log.Format)
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogConfig.Level
	} else {
		switch c.Log.Level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level: %s, options are debug, info, warn, error", c.Log.Level)
		}
	}

	return nil
}

func (c *Config) validateCORSConfig() error {
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = DefaultCORSConfig.AllowedOrigins
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = DefaultCORSConfig.AllowedMethods
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = DefaultCORSConfig.AllowedHeaders
	}
	if c.CORS.MaxAgeSeconds == 0 {
		c.CORS.MaxAgeSeconds = DefaultCORSConfig.MaxAgeSeconds
	}

	return nil
}
