// Package sdk keeps the Zephyr SDK inside the VM aligned with the version
// the host workspace declares.
package sdk

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultVersion is installed when the workspace does not declare one.
const DefaultVersion = Version("0.17.0")

var versionRe = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+(-[0-9A-Za-z.]+)?$`)

// Version identifies a Zephyr SDK release, e.g. "0.17.0". It is carried as
// a distinct type from the workspace read all the way to the resolver so
// raw strings cannot drift in unvalidated.
type Version string

func (v Version) String() string { return string(v) }

// ParseVersion validates and normalizes a version string as read from a
// workspace's SDK_VERSION file.
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if !versionRe.MatchString(trimmed) {
		return "", fmt.Errorf("invalid SDK version %q", trimmed)
	}
	return Version(trimmed), nil
}
