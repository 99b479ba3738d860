package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrResponseTooLarge is wrapped in an Error with no status when the gateway's body
// exceeds the read limit.
var ErrResponseTooLarge = errors.New("response body exceeds 10 MiB limit")

// Error is returned for every failed gateway call. StatusCode is zero when the request
// never produced a response.
type Error struct {
	StatusCode int
	Body       []byte
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.IsNetwork() {
		return fmt.Sprintf("upstream request failed: %s", e.Message)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether the failure happened before any HTTP status was received.
func (e *Error) IsNetwork() bool {
	return e.StatusCode == 0
}

func newNetworkError(err error) *Error {
	return &Error{Message: err.Error(), Err: err}
}

func newStatusError(status int, body []byte, parsed any) *Error {
	return &Error{
		StatusCode: status,
		Body:       body,
		Message:    errorMessage(body, parsed),
	}
}

var messageFields = []string{"error", "message", "error_description"}

// errorMessage picks the most descriptive field the provider sent, falling back to the raw body.
func errorMessage(body []byte, parsed any) string {
	if obj, ok := parsed.(map[string]any); ok {
		for _, field := range messageFields {
			if msg, ok := obj[field].(string); ok && msg != "" {
				return msg
			}
		}
	}

	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}

	return "empty response body"
}

func parseJSON(body []byte) (any, bool) {
	if len(body) == 0 {
		return nil, false
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}
