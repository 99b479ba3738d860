package authentication

import (
	"errors"
	"fmt"
)

var ErrAuthenticationFailed = errors.New("authentication failed")

// ConfigurationError is returned when a required setting is missing or malformed.
// It is fatal at construction time and never produced per-request.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// ValidationError is a client error on an inbound request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SessionDecodeError describes why a session cookie was rejected.
// It is downgraded to "no session" and never surfaced to the client.
type SessionDecodeError struct {
	Reason string
	Err    error
}

func (e *SessionDecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session decode failed: %s: %v", e.Reason, e.Err)
	}
	return "session decode failed: " + e.Reason
}

func (e *SessionDecodeError) Unwrap() error {
	return e.Err
}
