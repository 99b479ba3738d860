package models

import (
	"log/slog"
	"time"
)

// Session is the authenticated principal carried in the encrypted session cookie.
type Session struct {
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsComplete reports whether every field is populated. Partial sessions are never stored or returned.
func (s *Session) IsComplete() bool {
	return s != nil && s.UserID != "" && s.AccessToken != "" && !s.CreatedAt.IsZero()
}

func (s *Session) GetUserID() string {
	if s == nil {
		return ""
	}
	return s.UserID
}

// LogValue keeps the access token out of log output.
func (s *Session) LogValue() slog.Value {
	if s == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.String("user_id", s.UserID),
		slog.Time("created_at", s.CreatedAt),
	)
}

// AuthResult is what a successful code exchange hands back to the callback handler.
type AuthResult struct {
	AccessToken string
	UserID      string
}
