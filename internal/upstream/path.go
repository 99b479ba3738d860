package upstream

import (
	"net/url"
	"strings"
)

// HasDotSegment reports whether p contains a "." or ".." segment, including
// percent-encoded ones. Such paths could climb out of the gateway's API prefix.
func HasDotSegment(p string) bool {
	unescaped, err := url.PathUnescape(p)
	if err != nil {
		return true
	}

	for _, segment := range strings.FieldsFunc(unescaped, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == "." || segment == ".." {
			return true
		}
	}
	return false
}
