// Package version carries the firmware version reported to clients, the
// discovery service and the update server.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/luxio/internal/version.Version=104 \
//	                   -X github.com/muurk/luxio/internal/version.Commit=abc123"
var (
	// Version is the firmware version. The update server compares it
	// against the newest image it holds.
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

// DefaultVersion is reported when no version was stamped at build time.
const DefaultVersion = "103"

func init() {
	if Commit == "" {
		Commit = commitFromBuildInfo()
	}
	if Version == "" {
		Version = DefaultVersion
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func commitFromBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var revision string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision == "" {
		return ""
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}

// Platform identifies the hardware/OS pair the controller runs on,
// e.g. "linux/arm".
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
