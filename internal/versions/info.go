// Package versions orders version strings and reports the build information
// of the binary.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

const unknown = "unknown"

// Build information set with -ldflags
var (
	Version   = "dev"
	Commit    = unknown
	BuildDate = unknown
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build information, filling unset values from the
// module build info of development builds
func GetInfo() Info {
	return buildInfo(Version, Commit, BuildDate, debug.ReadBuildInfo)
}

func buildInfo(version, commit, buildDate string, read func() (*debug.BuildInfo, bool)) Info {
	if version == "dev" {
		if info, ok := read(); ok {
			for _, s := range info.Settings {
				switch {
				case s.Key == "vcs.revision" && commit == unknown:
					commit = s.Value
				case s.Key == "vcs.time" && buildDate == unknown:
					buildDate = s.Value
				}
			}
		}
		version = fmt.Sprintf("build-%.8s", commit)
	}

	if t, err := time.Parse(time.RFC3339, buildDate); err == nil {
		buildDate = t.UTC().Format("2006-01-02 15:04:05 MST")
	}

	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
