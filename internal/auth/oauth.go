package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gatekeeper/internal/authentication"
	"gatekeeper/internal/config"
	"gatekeeper/internal/middlewares"
	"gatekeeper/internal/models"

	"golang.org/x/oauth2"
)

// OAuthService runs the authorization-code flow. The token exchange goes through the
// gateway because the provider only accepts calls from the gateway's address.
type OAuthService struct {
	oauth2Config *oauth2.Config
	clientID     string
	clientSecret string
	tokenPath    string
	upstream     middlewares.UpstreamClient
	logger       *slog.Logger
}

var _ middlewares.OAuthProvider = (*OAuthService)(nil)

func NewOAuthService(logger *slog.Logger, cfg *config.Config, upstream middlewares.UpstreamClient) (*OAuthService, error) {
	if cfg.OAuth.ClientID == "" {
		return nil, authentication.NewConfigurationError("oauth.client_id", "is required")
	}
	if cfg.OAuth.ClientSecret == "" {
		return nil, authentication.NewConfigurationError("oauth.client_secret", "is required")
	}
	if cfg.OAuth.AuthorizeURL == "" {
		return nil, authentication.NewConfigurationError("oauth.authorize_url", "is required")
	}
	if upstream == nil {
		return nil, authentication.NewConfigurationError("gateway", "client is required")
	}

	tokenPath := cfg.OAuth.TokenPath
	if tokenPath == "" {
		tokenPath = config.DefaultOAuthConfig.TokenPath
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &OAuthService{
		oauth2Config: &oauth2.Config{
			ClientID:    cfg.OAuth.ClientID,
			RedirectURL: cfg.RedirectURL(),
			Scopes:      cfg.OAuth.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL: cfg.OAuth.AuthorizeURL,
			},
		},
		clientID:     cfg.OAuth.ClientID,
		clientSecret: cfg.OAuth.ClientSecret,
		tokenPath:    tokenPath,
		upstream:     upstream,
		logger:       logger,
	}, nil
}

// AuthorizationURL is where the browser is sent to log in. state round-trips unchanged.
func (s *OAuthService) AuthorizationURL(state string) string {
	return s.oauth2Config.AuthCodeURL(state)
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	UID         json.RawMessage `json:"uid"`
}

// Authorize exchanges code for an access token and stores the resulting session on
// ctx.Response. Nothing is written unless the exchange and decoding both succeed.
func (s *OAuthService) Authorize(ctx *middlewares.AppContext, code string) (*models.AuthResult, error) {
	if code == "" {
		return nil, &authentication.ValidationError{Field: "code", Message: "authorization code is required"}
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"code":          {code},
	}

	resp, err := s.upstream.PostForm(ctx, s.tokenPath, form, "")
	if err != nil {
		return nil, err
	}

	var token tokenResponse
	if err := resp.Decode(&token); err != nil {
		return nil, fmt.Errorf("%w: %v", authentication.ErrAuthenticationFailed, err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response missing access_token", authentication.ErrAuthenticationFailed)
	}

	userID, err := canonicalUID(token.UID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authentication.ErrAuthenticationFailed, err)
	}

	session := &models.Session{
		UserID:      userID,
		AccessToken: token.AccessToken,
		CreatedAt:   time.Now().UTC(),
	}

	if err := ctx.SessionManager.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Debug("code exchanged", "session", session)

	return &models.AuthResult{
		AccessToken: token.AccessToken,
		UserID:      userID,
	}, nil
}

// canonicalUID accepts the provider's uid as a JSON number or numeric string and returns
// it in base 10 without sign or leading zeros.
func canonicalUID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("token response missing uid")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return "", fmt.Errorf("malformed uid: %w", err)
	}

	var digits string
	switch v := value.(type) {
	case json.Number:
		digits = v.String()
	case string:
		digits = strings.TrimSpace(v)
	default:
		return "", fmt.Errorf("uid must be a number, got %T", value)
	}

	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return "", fmt.Errorf("uid %q is not a non-negative integer", digits)
	}

	return strconv.FormatUint(id, 10), nil
}
