// Package version holds build metadata of the gitstats binary.
package version

import (
	"fmt"
	"runtime/debug"
)

const develVersion = "(devel)"

// Build metadata, overridden at link time with -ldflags "-X ...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills metadata left at its default from the module
// build info, so `go install` builds report something useful.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != develVersion {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

// String formats the metadata for `gitstats version`.
func String() string {
	return fmt.Sprintf("gitstats %s (commit: %s, built: %s)", Version, Commit, Date)
}
