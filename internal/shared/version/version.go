// Package version reports the build version of the running binary.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Set at build time with -ldflags "-X .../shared/version.Current=v1.2.3 -X .../shared/version.Commit=abc".
var (
	Current = "dev"
	Commit  = ""
)

// Normalize ensures version string has "v" prefix for semver compatibility.
// Examples: "1.2.3" -> "v1.2.3", "v1.2.3" -> "v1.2.3"
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

// IsRelease reports whether v is a valid semantic version without a prerelease tag.
func IsRelease(v string) bool {
	v = Normalize(v)
	return semver.IsValid(v) && semver.Prerelease(v) == ""
}

// Info describes the running build.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Release bool   `json:"release"`
}

// Get returns the build info of the running binary.
func Get() Info {
	v := Current
	if semver.IsValid(Normalize(v)) {
		v = Normalize(v)
	}
	return Info{
		Version: v,
		Commit:  Commit,
		Release: IsRelease(Current),
	}
}
