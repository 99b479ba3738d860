package upstream

import (
	"encoding/json"
	"fmt"
	"mime"
	"strings"
)

// Response is a successful gateway reply. JSON holds the parsed body when the gateway
// declared a JSON content type; a JSON null leaves it nil.
type Response struct {
	StatusCode  int
	ContentType string
	Raw         []byte
	JSON        any
}

// IsJSON reports whether the gateway declared a JSON content type and the body is valid JSON.
func (r *Response) IsJSON() bool {
	return isJSONContentType(r.ContentType) && json.Valid(r.Raw)
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Raw)
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v any) error {
	if len(r.Raw) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
