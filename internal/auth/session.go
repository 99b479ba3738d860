package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"gatekeeper/internal/authentication"
	"gatekeeper/internal/config"
	"gatekeeper/internal/middlewares"
	"gatekeeper/internal/models"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

// SessionManager stores the session entirely in an authenticated, encrypted cookie.
// Nothing is kept server-side, so any instance holding the same secret can read it.
// The CookieStore only supplies the codecs and cookie options; reads go through Decode.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	maxAge int
	logger *slog.Logger
}

var _ middlewares.SessionProvider = (*SessionManager)(nil)

func NewSessionManager(logger *slog.Logger, cfg *config.Config) (*SessionManager, error) {
	secret := cfg.Sessions.Secret
	if secret == "" {
		return nil, authentication.NewConfigurationError("sessions.secret", "is required")
	}
	if len(secret) < config.MinSessionSecretLength {
		return nil, authentication.NewConfigurationError("sessions.secret", fmt.Sprintf("must be at least %d bytes", config.MinSessionSecretLength))
	}

	hashKey, err := deriveKey(secret, hkdfInfoHashKey, hashKeyLength)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(secret, hkdfInfoBlockKey, blockKeyLength)
	if err != nil {
		return nil, err
	}

	name := cfg.Sessions.Name
	if name == "" {
		name = config.DefaultSessionConfig.Name
	}

	maxAge := cfg.Sessions.MaxAge
	if maxAge <= 0 {
		maxAge = config.DefaultSessionConfig.MaxAge
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Sessions.IsSecure(),
		SameSite: http.SameSiteLaxMode,
	}
	// Also bounds the timestamp securecookie accepts on decode.
	store.MaxAge(int(maxAge.Seconds()))

	if logger == nil {
		logger = slog.Default()
	}

	return &SessionManager{
		store:  store,
		name:   name,
		maxAge: int(maxAge.Seconds()),
		logger: logger,
	}, nil
}

func deriveKey(secret, info string, length int) ([]byte, error) {
	key := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}

// GetSession never fails: a missing, tampered, expired or incomplete cookie is reported
// as no session.
func (s *SessionManager) GetSession(ctx *middlewares.AppContext) (*models.Session, bool) {
	cookie, err := ctx.Request.Cookie(s.name)
	if err != nil {
		return nil, false
	}

	return s.Decode(cookie.Value)
}

func (s *SessionManager) SetSession(ctx *middlewares.AppContext, session *models.Session) error {
	if !session.IsComplete() {
		return &authentication.ValidationError{Field: "session", Message: "refusing to store incomplete session"}
	}

	values := map[interface{}]interface{}{
		string(SessionKeyUserID):      session.UserID,
		string(SessionKeyAccessToken): session.AccessToken,
		string(SessionKeyCreatedAt):   session.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	encoded, err := securecookie.EncodeMulti(s.name, values, s.store.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to write session cookie: %w", err)
	}

	s.writeCookie(ctx, encoded, s.maxAge)
	return nil
}

// ClearSession expires the cookie and drops it from the in-flight request. Calling it
// without a session is not an error.
func (s *SessionManager) ClearSession(ctx *middlewares.AppContext) error {
	if ctx.Response == nil {
		return errors.New("failed to clear session cookie: no response writer")
	}

	s.writeCookie(ctx, "", -1)
	return nil
}

// Decode verifies and decrypts a raw cookie value. It is a pure function of the token and
// the configured secret.
func (s *SessionManager) Decode(token string) (*models.Session, bool) {
	session, err := s.decode(token)
	if err != nil {
		s.logDecodeFailure(err)
		return nil, false
	}
	return session, true
}

// writeCookie sets the response cookie and mirrors it onto the request, so later reads in
// the same request see the new state.
func (s *SessionManager) writeCookie(ctx *middlewares.AppContext, value string, maxAge int) {
	options := *s.store.Options
	options.MaxAge = maxAge
	http.SetCookie(ctx.Response, sessions.NewCookie(s.name, value, &options))
	replaceRequestCookie(ctx.Request, s.name, value)
}

func replaceRequestCookie(r *http.Request, name, value string) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	for _, c := range cookies {
		if c.Name != name {
			r.AddCookie(c)
		}
	}
	if value != "" {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

func (s *SessionManager) decode(token string) (*models.Session, error) {
	if token == "" {
		return nil, &authentication.SessionDecodeError{Reason: "empty token"}
	}

	values := make(map[interface{}]interface{})
	if err := securecookie.DecodeMulti(s.name, token, &values, s.store.Codecs...); err != nil {
		return nil, &authentication.SessionDecodeError{Reason: "cookie rejected", Err: err}
	}

	return sessionFromValues(values)
}

func (s *SessionManager) logDecodeFailure(err error) {
	var decodeErr *authentication.SessionDecodeError
	if errors.As(err, &decodeErr) {
		s.logger.Debug("ignoring session cookie", "reason", decodeErr.Reason, "error", decodeErr.Err)
		return
	}
	s.logger.Debug("ignoring session cookie", "error", err)
}

func sessionFromValues(values map[interface{}]interface{}) (*models.Session, error) {
	userID, _ := values[string(SessionKeyUserID)].(string)
	if userID == "" {
		return nil, &authentication.SessionDecodeError{Reason: "missing user_id"}
	}

	accessToken, _ := values[string(SessionKeyAccessToken)].(string)
	if accessToken == "" {
		return nil, &authentication.SessionDecodeError{Reason: "missing access_token"}
	}

	rawCreatedAt, _ := values[string(SessionKeyCreatedAt)].(string)
	if rawCreatedAt == "" {
		return nil, &authentication.SessionDecodeError{Reason: "missing created_at"}
	}

	createdAt, err := time.Parse(time.RFC3339Nano, rawCreatedAt)
	if err != nil {
		return nil, &authentication.SessionDecodeError{Reason: "malformed created_at", Err: err}
	}

	return &models.Session{
		UserID:      userID,
		AccessToken: accessToken,
		CreatedAt:   createdAt,
	}, nil
}
