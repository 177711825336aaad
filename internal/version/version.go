package version

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Version is the released version of the assistant service.
// Override at build time:
//
//	go build -ldflags "-X github.com/hrygo/angelo/internal/version.Version=v0.3.0"
var Version = "0.3.0"

// DevVersion is reported in dev and demo modes.
var DevVersion = Version + "-dev"

// GitCommit is the git commit hash at build time.
var GitCommit = "unknown"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or equal to target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) > -1
}

func canonical(v string) string {
	if len(v) > 0 && v[0] == 'v' {
		return v
	}
	return "v" + v
}

// String returns the version with a short commit hash when known.
func String() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return Version
	}
	short := GitCommit
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%s", Version, short)
}
