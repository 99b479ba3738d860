// Package version exposes build metadata. Values are injected at link time through
// github.com/prometheus/common/version, e.g.
//
//	-ldflags "-X github.com/prometheus/common/version.Version=1.2.0 -X github.com/prometheus/common/version.Revision=$(git rev-parse HEAD)"
package version

import (
	commonversion "github.com/prometheus/common/version"
)

const Program = "gatekeeper"

// GetFullVersion is the one-line summary logged at startup.
func GetFullVersion() string {
	return commonversion.Info()
}

// Print is the multi-line report for -version.
func Print(program string) string {
	return commonversion.Print(program)
}
