// Package version reports the build version of the FinSense binary.
package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the released version, set at build time:
//
//	go build -ldflags "-X github.com/hrygo/finsense/internal/version.Version=0.1.0"
var Version = "0.1.0"

// GitCommit and BuildTime are set through ldflags the same way.
var (
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// GetCurrentVersion returns Version, tagged "-dev" outside prod mode.
func GetCurrentVersion(mode string) string {
	if mode == "prod" || semver.Prerelease("v"+Version) != "" {
		return Version
	}
	return Version + "-dev"
}

// IsRelease reports whether v is a valid semantic version without a prerelease part.
func IsRelease(v string) bool {
	v = "v" + strings.TrimPrefix(v, "v")
	return semver.IsValid(v) && semver.Prerelease(v) == ""
}

// ShortCommit returns the first 8 characters of GitCommit, or "" when unknown.
func ShortCommit() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return ""
	}
	if len(GitCommit) > 8 {
		return GitCommit[:8]
	}
	return GitCommit
}

// StringFull returns the version with commit and build time when they are known.
func StringFull() string {
	parts := []string{fmt.Sprintf("FinSense %s", Version)}
	if c := ShortCommit(); c != "" {
		parts = append(parts, "commit "+c)
	}
	if BuildTime != "" && BuildTime != "unknown" {
		parts = append(parts, "built "+BuildTime)
	}
	return strings.Join(parts, ", ")
}
