package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasDotSegment(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "/read/threads", want: false},
		{path: "/read/threads/", want: false},
		{path: "/read/..threads", want: false},
		{path: "/files/v1.2", want: false},
		{path: "/../../outside", want: true},
		{path: "/read/./me", want: true},
		{path: "read/..", want: true},
		{path: "/%2e%2e/admin", want: true},
		{path: "/%2E%2e%2Fadmin", want: true},
		{path: "/..%5cadmin", want: true},
		{path: "/bad%zzescape", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, HasDotSegment(tt.path))
		})
	}
}
