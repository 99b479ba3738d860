// Package authstate carries the post-login return destination through the OAuth
// state parameter.
//
// The token is intent-preservation only: it is not signed, so Decode validates
// structure and falls back to the site root on anything it does not like.
package authstate

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
)

const DefaultReturnURL = "/"

// State is the payload serialized into the OAuth state parameter.
type State struct {
	ReturnURL string `json:"returnUrl"`
}

// Default is returned whenever a token cannot be trusted.
func Default() State {
	return State{ReturnURL: DefaultReturnURL}
}

// Encode serializes the state into a URL-safe token.
func Encode(state State) string {
	// Marshalling a struct with a single string field cannot fail.
	payload, _ := json.Marshal(state)
	return base64.RawURLEncoding.EncodeToString(payload)
}

// Decode parses a token produced by Encode. Malformed tokens and return URLs that
// could leave the origin yield Default().
func Decode(token string) State {
	if token == "" {
		return Default()
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return Default()
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return Default()
	}

	if !IsRelativePath(state.ReturnURL) {
		return Default()
	}

	return state
}

// IsRelativePath reports whether target is a same-origin path such as "/settings?tab=1".
// Absolute URLs, protocol-relative URLs ("//evil.com") and backslash variants browsers
// normalize into them ("/\evil.com") are rejected.
func IsRelativePath(target string) bool {
	if !strings.HasPrefix(target, "/") {
		return false
	}

	if len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return false
	}

	if strings.ContainsAny(target, "\r\n\t") {
		return false
	}

	u, err := url.Parse(target)
	if err != nil {
		return false
	}

	return u.Scheme == "" && u.Host == "" && u.User == nil
}

// FromRequestURI builds the state for the path and query a user originally asked for.
func FromRequestURI(u *url.URL) State {
	if u == nil {
		return Default()
	}

	target := u.EscapedPath()
	if target == "" {
		target = DefaultReturnURL
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}

	if !IsRelativePath(target) {
		return Default()
	}

	return State{ReturnURL: target}
}
