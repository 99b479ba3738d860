package config

import (
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig  `yaml:"server"`
	OAuth    OAuthConfig   `yaml:"oauth"`
	Gateway  GatewayConfig `yaml:"gateway"`
	Sessions SessionConfig `yaml:"sessions"`
	Log      LogConfig     `yaml:"log"`
	CORS     CORSConfig    `yaml:"cors"`
}

type ServerConfig struct {
	Port        int                `yaml:"port" env:"GATEKEEPER_SERVER_PORT"`
	ExternalURL string             `yaml:"external_url" env:"GATEKEEPER_SERVER_EXTERNAL_URL"`
	StaticDir   string             `yaml:"static_dir" env:"GATEKEEPER_SERVER_STATIC_DIR"`
	Debug       *ServerDebugConfig `yaml:"debug"`
}

var DefaultServerConfig = ServerConfig{
	Port: 8080,
}

type ServerDebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

var DefaultDebugConfig = ServerDebugConfig{
	Enabled: false,
	Host:    "localhost",
	Port:    5123,
}

// OAuthConfig describes the third-party provider the application authenticates against.
// AuthorizeURL is visited by the browser; TokenPath is resolved against the gateway.
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id" env:"GATEKEEPER_OAUTH_CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"GATEKEEPER_OAUTH_CLIENT_SECRET"`
	AuthorizeURL string   `yaml:"authorize_url" env:"GATEKEEPER_OAUTH_AUTHORIZE_URL"`
	TokenPath    string   `yaml:"token_path" env:"GATEKEEPER_OAUTH_TOKEN_PATH"`
	CallbackPath string   `yaml:"callback_path" env:"GATEKEEPER_OAUTH_CALLBACK_PATH"`
	Scopes       []string `yaml:"scopes" env:"GATEKEEPER_OAUTH_SCOPES" envSeparator:","`
}

var DefaultOAuthConfig = OAuthConfig{
	TokenPath:    "/token",
	CallbackPath: "/auth",
}

// RedirectURL is the absolute callback URL registered with the provider.
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.Server.ExternalURL, "/") + c.OAuth.CallbackPath
}

// GatewayConfig points at the fixed-identity egress proxy.
type GatewayConfig struct {
	URL     string        `yaml:"url" env:"GATEKEEPER_GATEWAY_URL"`
	APIKey  string        `yaml:"api_key" env:"GATEKEEPER_GATEWAY_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"GATEKEEPER_GATEWAY_TIMEOUT"`
}

var DefaultGatewayConfig = GatewayConfig{
	Timeout: 30 * time.Second,
}

type SessionConfig struct {
	Name   string        `yaml:"name" env:"GATEKEEPER_SESSIONS_NAME"`
	Secret string        `yaml:"secret" env:"GATEKEEPER_SESSIONS_SECRET"`
	MaxAge time.Duration `yaml:"max_age" env:"GATEKEEPER_SESSIONS_MAX_AGE"`
	Secure *bool         `yaml:"secure"`
}

// MinSessionSecretLength is the minimum number of bytes accepted for sessions.secret.
const MinSessionSecretLength = 32

var DefaultSessionConfig = SessionConfig{
	Name:   "gatekeeper_session",
	MaxAge: 7 * 24 * time.Hour,
}

// IsSecure defaults to true when unset.
func (s SessionConfig) IsSecure() bool {
	return s.Secure == nil || *s.Secure
}

type LogConfig struct {
	Level  string `yaml:"level" env:"GATEKEEPER_LOG_LEVEL"`
	Format string `yaml:"format" env:"GATEKEEPER_LOG_FORMAT"`
}

var DefaultLogConfig = LogConfig{
	Level:  "info",
	Format: "text",
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" env:"GATEKEEPER_CORS_ALLOWED_ORIGINS" envSeparator:","`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAgeSeconds    int      `yaml:"max_age_seconds"`
}

var DefaultCORSConfig = CORSConfig{
	AllowedOrigins: []string{"http://localhost:5173"},
	AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	AllowedHeaders: []string{"*"},
	MaxAgeSeconds:  300,
}
